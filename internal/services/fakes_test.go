package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- users ---

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]models.User
	err    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint]models.User{}}
}

func (f *fakeUsers) add(username string) *models.User {
	u := &models.User{Username: username}
	if err := f.CreateUser(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (f *fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.byID {
		if u.Username == user.Username {
			return repositories.ErrDuplicate
		}
		if user.FirebaseUID != nil && u.FirebaseUID != nil && *u.FirebaseUID == *user.FirebaseUID {
			return repositories.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.byID[user.ID] = *user
	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.FirebaseUID != nil && *u.FirebaseUID == uid {
			u := u
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) GetUsersByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) snapshot() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	nextID, byID := f.nextID, make(map[uint]models.User, len(f.byID))
	for k, v := range f.byID {
		byID[k] = v
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID, f.byID = nextID, byID
	}
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeUsers) UpdateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.byID[user.ID] = *user
	return nil
}

// --- profiles ---

type fakeProfiles struct {
	mu       sync.Mutex
	nextID   uint
	byUserID map[uint]models.Profile
	users    *fakeUsers
	err      error
}

func newFakeProfiles(users *fakeUsers) *fakeProfiles {
	return &fakeProfiles{byUserID: map[uint]models.Profile{}, users: users}
}

func (f *fakeProfiles) CreateProfile(_ context.Context, profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byUserID[profile.UserID]; ok {
		return repositories.ErrDuplicate
	}
	f.nextID++
	profile.ID = f.nextID
	f.byUserID[profile.UserID] = *profile
	return nil
}

func (f *fakeProfiles) GetProfileByUserID(_ context.Context, userID uint) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byUserID[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) SaveRole(ctx context.Context, userID uint, role models.Role) (*models.Profile, error) {
	f.mu.Lock()
	p, ok := f.byUserID[userID]
	if !ok {
		f.mu.Unlock()
		return nil, repositories.ErrNotFound
	}
	p.Role = role
	f.byUserID[userID] = p
	f.mu.Unlock()

	user, err := f.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.IsStaff = role == models.RoleAdmin
	if err := f.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return &p, nil
}

func (f *fakeProfiles) snapshot() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	nextID, byUserID := f.nextID, make(map[uint]models.Profile, len(f.byUserID))
	for k, v := range f.byUserID {
		byUserID[k] = v
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID, f.byUserID = nextID, byUserID
	}
}

// --- follows ---

type edge struct{ from, to uint }

type fakeFollows struct {
	mu    sync.Mutex
	edges map[edge]struct{}
	err   error
}

func newFakeFollows() *fakeFollows {
	return &fakeFollows{edges: map[edge]struct{}{}}
}

func (f *fakeFollows) AddFollow(_ context.Context, followerID, followingID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	e := edge{followerID, followingID}
	if _, ok := f.edges[e]; ok {
		return false, nil
	}
	f.edges[e] = struct{}{}
	return true, nil
}

func (f *fakeFollows) RemoveFollow(_ context.Context, followerID, followingID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	e := edge{followerID, followingID}
	if _, ok := f.edges[e]; !ok {
		return false, nil
	}
	delete(f.edges, e)
	return true, nil
}

func (f *fakeFollows) IsFollowing(_ context.Context, followerID, followingID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.edges[edge{followerID, followingID}]
	return ok, nil
}

func (f *fakeFollows) GetFollowingIDs(_ context.Context, userID uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ids := []uint{}
	for e := range f.edges {
		if e.from == userID {
			ids = append(ids, e.to)
		}
	}
	return ids, nil
}

func (f *fakeFollows) GetFollowerIDs(_ context.Context, userID uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []uint{}
	for e := range f.edges {
		if e.to == userID {
			ids = append(ids, e.from)
		}
	}
	return ids, nil
}

func (f *fakeFollows) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edges)
}

// --- likes ---

type likeKey struct {
	userID uint
	postID string
}

type fakeLikes struct {
	mu        sync.Mutex
	nextID    uint
	likes     map[likeKey]models.Like
	err       error
	deleteErr error

	// afterCreate runs once a like has been inserted, outside the lock
	afterCreate func(models.Like)
}

func newFakeLikes() *fakeLikes {
	return &fakeLikes{likes: map[likeKey]models.Like{}}
}

func (f *fakeLikes) CreateLike(_ context.Context, like *models.Like) (bool, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return false, f.err
	}
	k := likeKey{like.UserID, like.PostID}
	if _, ok := f.likes[k]; ok {
		f.mu.Unlock()
		return false, nil
	}
	f.nextID++
	like.ID = f.nextID
	like.CreatedAt = time.Now()
	f.likes[k] = *like
	hook := f.afterCreate
	f.mu.Unlock()

	if hook != nil {
		hook(*like)
	}
	return true, nil
}

func (f *fakeLikes) DeleteLike(_ context.Context, postID string, userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	k := likeKey{userID, postID}
	if _, ok := f.likes[k]; !ok {
		return false, nil
	}
	delete(f.likes, k)
	return true, nil
}

func (f *fakeLikes) DeleteLikesByPostID(_ context.Context, postID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	var n int64
	for k := range f.likes {
		if k.postID == postID {
			delete(f.likes, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeLikes) GetLikesCountByPostID(_ context.Context, postID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.likes {
		if k.postID == postID {
			n++
		}
	}
	return n, nil
}

func (f *fakeLikes) HasUserLikedPost(_ context.Context, postID string, userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.likes[likeKey{userID, postID}]
	return ok, nil
}

func (f *fakeLikes) snapshot() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	nextID, likes := f.nextID, make(map[likeKey]models.Like, len(f.likes))
	for k, v := range f.likes {
		likes[k] = v
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID, f.likes = nextID, likes
	}
}

func (f *fakeLikes) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.likes)
}

// --- notifications ---

type fakeNotifications struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.Notification
	err    error
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	n.ID = f.nextID
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotifications) GetByRecipientID(_ context.Context, recipientID uint) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Notification{}
	for _, n := range f.rows {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeNotifications) snapshot() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	nextID, rows := f.nextID, append([]models.Notification(nil), f.rows...)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID, f.rows = nextID, rows
	}
}

func (f *fakeNotifications) all() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.rows...)
}

// --- posts ---

type fakePosts struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]models.Post
	err   error
}

func newFakePosts() *fakePosts {
	return &fakePosts{posts: map[primitive.ObjectID]models.Post{}}
}

// add stores a post by authorID created at the given time
func (f *fakePosts) add(authorID uint, title string, createdAt time.Time) models.Post {
	p := models.Post{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Title:     title,
		Content:   title + " body",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	f.mu.Lock()
	f.posts[p.ID] = p
	f.mu.Unlock()
	return p
}

func (f *fakePosts) CreatePost(_ context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	f.posts[post.ID] = *post
	return nil
}

func (f *fakePosts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	p, ok := f.posts[objID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (f *fakePosts) matching(filter repositories.PostFilter) []models.Post {
	var authors map[uint]bool
	if filter.AuthorIDs != nil {
		authors = map[uint]bool{}
		for _, id := range filter.AuthorIDs {
			authors[id] = true
		}
	}
	search := strings.ToLower(filter.Search)

	out := []models.Post{}
	for _, p := range f.posts {
		if authors != nil && !authors[p.AuthorID] {
			continue
		}
		if filter.Tag != "" && !containsTag(p.Tags, filter.Tag) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Content), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (f *fakePosts) ListPosts(_ context.Context, filter repositories.PostFilter, skip, limit int64) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	all := f.matching(filter)
	if skip >= int64(len(all)) {
		return []models.Post{}, nil
	}
	end := skip + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[skip:end], nil
}

func (f *fakePosts) CountPosts(_ context.Context, filter repositories.PostFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.matching(filter))), nil
}

func (f *fakePosts) UpdatePost(_ context.Context, post *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.posts[post.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	existing.Title, existing.Content, existing.Tags, existing.UpdatedAt = post.Title, post.Content, post.Tags, post.UpdatedAt
	f.posts[post.ID] = existing
	return nil
}

func (f *fakePosts) DeletePost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repositories.ErrNotFound
	}
	if _, ok := f.posts[objID]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.posts, objID)
	return nil
}

func (f *fakePosts) remove(id primitive.ObjectID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
}

// --- comments ---

type fakeComments struct {
	mu        sync.Mutex
	comments  map[primitive.ObjectID]models.Comment
	err       error
	deleteErr error
}

func newFakeComments() *fakeComments {
	return &fakeComments{comments: map[primitive.ObjectID]models.Comment{}}
}

func (f *fakeComments) CreateComment(_ context.Context, comment *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	f.comments[comment.ID] = *comment
	return nil
}

func (f *fakeComments) GetCommentByID(_ context.Context, id string) (*models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	c, ok := f.comments[objID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (f *fakeComments) GetCommentsByPostID(_ context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Comment{}
	for _, c := range f.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (f *fakeComments) UpdateComment(_ context.Context, comment *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.comments[comment.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	existing.Content, existing.UpdatedAt = comment.Content, comment.UpdatedAt
	f.comments[comment.ID] = existing
	return nil
}

func (f *fakeComments) DeleteComment(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeComments) DeleteCommentsByPostID(_ context.Context, postID primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	var n int64
	for id, c := range f.comments {
		if c.PostID == postID {
			delete(f.comments, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeComments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.comments)
}

// --- transactions ---

type snapshotter interface {
	snapshot() (restore func())
}

type fakeTxKey struct{}

// fakeTx serializes transactions and restores every participating store
// when fn fails, the way a rolled back PostgreSQL transaction would.
type fakeTx struct {
	mu     sync.Mutex
	stores []snapshotter

	// commitErr fails the commit after fn succeeded
	commitErr error
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	restores := make([]func(), 0, len(f.stores))
	for _, s := range f.stores {
		restores = append(restores, s.snapshot())
	}
	err := fn(context.WithValue(ctx, fakeTxKey{}, true))
	if err == nil {
		err = f.commitErr
	}
	if err != nil {
		for _, restore := range restores {
			restore()
		}
	}
	return err
}

// --- metrics ---

type fakeRecorder struct {
	mu            sync.Mutex
	follows       map[bool]int
	unfollows     map[bool]int
	likes         map[bool]int
	unlikes       map[bool]int
	notifications map[string]int
	feedCalls     int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		follows:       map[bool]int{},
		unfollows:     map[bool]int{},
		likes:         map[bool]int{},
		unlikes:       map[bool]int{},
		notifications: map[string]int{},
	}
}

func (r *fakeRecorder) RecordFollow(created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.follows[created]++
}

func (r *fakeRecorder) RecordUnfollow(removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unfollows[removed]++
}

func (r *fakeRecorder) RecordLike(created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.likes[created]++
}

func (r *fakeRecorder) RecordUnlike(removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlikes[removed]++
}

func (r *fakeRecorder) RecordNotification(verb string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[verb]++
}

func (r *fakeRecorder) RecordFeedLatency(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedCalls++
}

// --- fixture ---

var errStorage = errors.New("storage unavailable")

type fixture struct {
	users         *fakeUsers
	profiles      *fakeProfiles
	follows       *fakeFollows
	likes         *fakeLikes
	notifications *fakeNotifications
	posts         *fakePosts
	comments      *fakeComments
	tx            *fakeTx
	recorder      *fakeRecorder

	graph      *SocialGraphService
	feed       *FeedService
	notifier   *NotificationService
	engagement *EngagementService
	content    *ContentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:         newFakeUsers(),
		follows:       newFakeFollows(),
		likes:         newFakeLikes(),
		notifications: &fakeNotifications{},
		posts:         newFakePosts(),
		comments:      newFakeComments(),
		recorder:      newFakeRecorder(),
	}
	f.profiles = newFakeProfiles(f.users)
	f.tx = &fakeTx{stores: []snapshotter{f.users, f.profiles, f.likes, f.notifications}}
	f.graph = NewSocialGraphService(f.users, f.follows, f.recorder)
	f.feed = NewFeedService(f.users, f.graph, f.posts, f.likes, 0, f.recorder)
	f.notifier = NewNotificationService(f.users, f.notifications, f.posts, f.recorder)
	f.engagement = NewEngagementService(f.users, f.posts, f.likes, f.notifier, f.tx, f.recorder)
	f.content = NewContentService(f.users, f.posts, f.likes, f.comments, 0)
	return f
}
