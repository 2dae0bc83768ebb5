package services

import (
	"context"
	"errors"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/socialfeed/internal/models"
	"github.com/anonto42/nano-midea/socialfeed/internal/repositories"
	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// IDTokenVerifier verifies third-party ID tokens. *auth.Client satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthResult is returned by every sign-in flow
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// IdentityService handles accounts, credentials and roles.
type IdentityService struct {
	users    repositories.UserRepository
	profiles repositories.ProfileRepository
	tx       repositories.Transactor
	tokens   *TokenManager
	verifier IDTokenVerifier
	log      *zap.Logger
}

// NewIdentityService wires the identity flows. A nil verifier disables
// Firebase sign-in.
func NewIdentityService(
	users repositories.UserRepository,
	profiles repositories.ProfileRepository,
	tx repositories.Transactor,
	tokens *TokenManager,
	verifier IDTokenVerifier,
) *IdentityService {
	return &IdentityService{
		users:    users,
		profiles: profiles,
		tx:       tx,
		tokens:   tokens,
		verifier: verifier,
		log:      logger.Get().Named("identity"),
	}
}

func (s *IdentityService) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal("failed to hash password", err)
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Bio:      req.Bio,
		Password: string(hashed),
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}
	return s.signIn(user)
}

func (s *IdentityService) Login(ctx context.Context, req models.LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnauthenticated("invalid username or password")
		}
		return nil, ErrInternal("failed to load user", err)
	}
	if user.Password == "" {
		return nil, ErrUnauthenticated("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrUnauthenticated("invalid username or password")
	}
	return s.signIn(user)
}

// FirebaseLogin exchanges a Firebase ID token for a local token, creating
// the account on first sign-in.
func (s *IdentityService) FirebaseLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	uid, err := s.VerifyFirebaseToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	user, err := s.userForFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.signIn(user)
}

// VerifyFirebaseToken returns the Firebase UID of a valid ID token
func (s *IdentityService) VerifyFirebaseToken(ctx context.Context, idToken string) (string, error) {
	if s.verifier == nil {
		return "", ErrUnauthenticated("firebase sign-in is not enabled")
	}
	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", ErrUnauthenticated("invalid firebase ID token")
	}
	return token.UID, nil
}

// UserIDForFirebaseUID maps a verified Firebase UID to a local user id,
// provisioning the account if needed.
func (s *IdentityService) UserIDForFirebaseUID(ctx context.Context, uid string) (uint, error) {
	user, err := s.userForFirebaseUID(ctx, uid)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (s *IdentityService) userForFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.users.GetUserByFirebaseUID(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInternal("failed to load user", err)
	}

	user = &models.User{
		Username:    "fb_" + uid,
		FirebaseUID: &uid,
	}
	if err := s.createUser(ctx, user); err != nil {
		// A concurrent first sign-in with the same uid won the insert.
		if IsKind(err, KindConflict) {
			if existing, lookupErr := s.users.GetUserByFirebaseUID(ctx, uid); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	s.log.Info("provisioned firebase user", zap.Uint("user_id", user.ID))
	return user, nil
}

// createUser inserts the user and its profile with the default role in one
// transaction, so a failed profile insert leaves no user behind.
func (s *IdentityService) createUser(ctx context.Context, user *models.User) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrConflict("username already taken")
			}
			s.log.Error("create user failed", zap.String("username", user.Username), zap.Error(err))
			return ErrInternal("failed to create user", err)
		}
		return s.initializeProfile(ctx, user)
	})
	if err != nil {
		user.ID = 0
		return orInternal(err, "failed to create user")
	}
	return nil
}

func (s *IdentityService) initializeProfile(ctx context.Context, user *models.User) error {
	profile := &models.Profile{UserID: user.ID, Role: models.RoleMember}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		s.log.Error("create profile failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return ErrInternal("failed to create profile", err)
	}
	return nil
}

func (s *IdentityService) signIn(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// ParseToken validates a local access token and returns the user id
func (s *IdentityService) ParseToken(tokenString string) (uint, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (s *IdentityService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return resolveUser(ctx, s.users, id)
}

// Me returns the viewer and their profile
func (s *IdentityService) Me(ctx context.Context, viewerID uint) (*models.User, *models.Profile, error) {
	user, err := resolveViewer(ctx, s.users, viewerID)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.profile(ctx, viewerID)
	if err != nil {
		return nil, nil, err
	}
	return user, profile, nil
}

// RoleOf returns the role of userID
func (s *IdentityService) RoleOf(ctx context.Context, userID uint) (models.Role, error) {
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.Role, nil
}

// UpdateRole lets an admin change the role of another user. Promoting to
// admin also marks the user as staff.
func (s *IdentityService) UpdateRole(ctx context.Context, actorID, targetID uint, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, ErrInvalidOperation("unknown role")
	}
	if _, err := resolveViewer(ctx, s.users, actorID); err != nil {
		return nil, err
	}
	actorRole, err := s.RoleOf(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleAdmin {
		return nil, ErrForbidden("admin role required")
	}
	if _, err := resolveUser(ctx, s.users, targetID); err != nil {
		return nil, err
	}

	profile, err := s.profiles.SaveRole(ctx, targetID, role)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound("profile not found")
		}
		return nil, ErrInternal("failed to update role", err)
	}
	s.log.Info("role updated", zap.Uint("actor_id", actorID), zap.Uint("user_id", targetID), zap.String("role", string(role)))
	return profile, nil
}

func (s *IdentityService) profile(ctx context.Context, userID uint) (*models.Profile, error) {
	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound("profile not found")
		}
		return nil, ErrInternal("failed to load profile", err)
	}
	return profile, nil
}
