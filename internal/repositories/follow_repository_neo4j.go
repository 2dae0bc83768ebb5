package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jFollowRepository keeps the social graph as (:User)-[:FOLLOWS]->(:User)
type Neo4jFollowRepository struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jFollowRepository(driver neo4j.DriverWithContext) *Neo4jFollowRepository {
	return &Neo4jFollowRepository{driver: driver}
}

// EnsureSchema creates the uniqueness constraint MERGE relies on.
func (r *Neo4jFollowRepository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`, nil)
	if err != nil {
		return fmt.Errorf("failed to create user constraint: %w", err)
	}
	return nil
}

func (r *Neo4jFollowRepository) AddFollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (a:User {id: $followerID})
		MERGE (b:User {id: $followingID})
		MERGE (a)-[f:FOLLOWS]->(b)
		ON CREATE SET f.created_at = datetime($now)
	`
	result, err := session.Run(ctx, query, map[string]any{
		"followerID":  int64(followerID),
		"followingID": int64(followingID),
		"now":         time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("failed to add follow: %w", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to add follow: %w", err)
	}
	return summary.Counters().RelationshipsCreated() > 0, nil
}

func (r *Neo4jFollowRepository) RemoveFollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH (:User {id: $followerID})-[f:FOLLOWS]->(:User {id: $followingID})
		DELETE f
	`
	result, err := session.Run(ctx, query, map[string]any{
		"followerID":  int64(followerID),
		"followingID": int64(followingID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove follow: %w", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to remove follow: %w", err)
	}
	return summary.Counters().RelationshipsDeleted() > 0, nil
}

func (r *Neo4jFollowRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		RETURN EXISTS {
			MATCH (:User {id: $followerID})-[:FOLLOWS]->(:User {id: $followingID})
		} AS following
	`
	result, err := session.Run(ctx, query, map[string]any{
		"followerID":  int64(followerID),
		"followingID": int64(followingID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	following, _ := record.Get("following")
	b, _ := following.(bool)
	return b, nil
}

func (r *Neo4jFollowRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return r.collectIDs(ctx, `MATCH (:User {id: $userID})-[:FOLLOWS]->(u:User) RETURN u.id AS id`, userID)
}

func (r *Neo4jFollowRepository) GetFollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return r.collectIDs(ctx, `MATCH (u:User)-[:FOLLOWS]->(:User {id: $userID}) RETURN u.id AS id`, userID)
}

func (r *Neo4jFollowRepository) collectIDs(ctx context.Context, query string, userID uint) ([]uint, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]any{"userID": int64(userID)})
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	ids := []uint{}
	for result.Next(ctx) {
		value, ok := result.Record().Get("id")
		if !ok {
			continue
		}
		if id, ok := value.(int64); ok && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return ids, nil
}
