package config

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anonto42/nano-midea/socialfeed/pkg/logger"
)

// DB holds the database connections
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	Neo4j    neo4j.DriverWithContext // nil unless GRAPH_BACKEND=neo4j
}

// InitDB opens every store the configuration asks for
func InitDB(ctx context.Context, cfg *Config) (*DB, error) {
	postgresDB, err := initPostgres(cfg.PostgresConnStr, cfg.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	mongoClient, err := initMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	db := &DB{Postgres: postgresDB, Mongo: mongoClient}

	if cfg.GraphBackend == GraphBackendNeo4j {
		driver, err := initNeo4j(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
		}
		db.Neo4j = driver
	}

	return db, nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string, verbose bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	logger.Get().Info("connected to PostgreSQL")
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	logger.Get().Info("connected to MongoDB")
	return client, nil
}

func initNeo4j(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	logger.Get().Info("connected to Neo4j", zap.String("uri", uri))
	return driver, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	log := logger.Get()

	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			log.Error("error getting SQL DB from GORM", zap.Error(err))
		} else if err := sqlDB.Close(); err != nil {
			log.Error("error closing PostgreSQL connection", zap.Error(err))
		} else {
			log.Info("PostgreSQL connection closed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if db.Mongo != nil {
		if err := db.Mongo.Disconnect(ctx); err != nil {
			log.Error("error closing MongoDB connection", zap.Error(err))
		} else {
			log.Info("MongoDB connection closed")
		}
	}

	if db.Neo4j != nil {
		if err := db.Neo4j.Close(ctx); err != nil {
			log.Error("error closing Neo4j driver", zap.Error(err))
		} else {
			log.Info("Neo4j driver closed")
		}
	}
}
