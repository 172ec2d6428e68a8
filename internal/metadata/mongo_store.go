package metadata

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	c "github.com/life-stream-dev/go-sttp-publisher/internal/config"
	"github.com/life-stream-dev/go-sttp-publisher/internal/event"
	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/utils"
	uuid "github.com/satori/go.uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const activeMeasurementsCollection = "metadata"

var ErrRowIDEmpty = errors.New("row id is empty")

// MongoDataset is the default Dataset, backed by a single
// ActiveMeasurements collection in Mongo.
type MongoDataset struct {
	client           *mongo.Client
	db               *mongo.Database
	operationTimeout time.Duration
}

// ConnectMongoDataset dials Mongo using the publisher's shared Database
// config block and registers its own shutdown with the process-wide
// Cleaner.
func ConnectMongoDataset() (*MongoDataset, error) {
	cfg, err := c.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("error occured while connecting to metadata store: %w", err)
	}

	operationTimeout := utils.ParseStringTime(cfg.Database.OperationTimeout)

	encodedUser := url.QueryEscape(cfg.Database.Username)
	encodedPass := url.QueryEscape(cfg.Database.Password)
	databaseURL := fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=admin",
		encodedUser, encodedPass,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	clientOptions := options.Client().ApplyURI(databaseURL).SetAppName(cfg.AppName)
	clientOptions.SetMinPoolSize(cfg.Database.MinPoolSize)
	clientOptions.SetMaxPoolSize(cfg.Database.MaxPoolSize)
	clientOptions.SetMaxConnIdleTime(utils.ParseStringTime(cfg.Database.ConnectIdleTimeout))
	clientOptions.SetConnectTimeout(utils.ParseStringTime(cfg.Database.ConnectTimeout))
	clientOptions.SetSocketTimeout(utils.ParseStringTime(cfg.Database.SocketTimeout))
	clientOptions.SetHeartbeatInterval(utils.ParseStringTime(cfg.Database.Heartbeat))
	if cfg.Database.UseTLS {
		clientOptions.SetTLSConfig(&tls.Config{InsecureSkipVerify: false})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error occured while connecting to metadata store: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error occured while pinging metadata store: %w", err)
	}

	db := client.Database(cfg.Database.Database)

	_, err = db.Collection(activeMeasurementsCollection).Indexes().CreateOne(
		context.Background(),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "signal_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("metadata_signal_id_unique"),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error occured while creating metadata indexes: %w", err)
	}

	ds := &MongoDataset{client: client, db: db, operationTimeout: operationTimeout}
	event.NewCleaner().Add(newMongoCloseCallback(ds))
	return ds, nil
}

type mongoCloseCallback struct {
	ds *MongoDataset
}

func newMongoCloseCallback(ds *MongoDataset) *mongoCloseCallback {
	return &mongoCloseCallback{ds: ds}
}

func (m *mongoCloseCallback) Invoke(ctx context.Context) error {
	logger.InfoF("Closing metadata store connection")
	ctx, cancel := context.WithTimeout(ctx, m.ds.operationTimeout)
	defer cancel()
	return m.ds.client.Disconnect(ctx)
}

func (ds *MongoDataset) Name() string {
	return "ActiveMeasurements"
}

// Rows loads every row in the ActiveMeasurements collection. The
// collection is expected to be small enough (thousands, not millions, of
// signals) to load wholesale per filter evaluation; larger deployments
// are expected to push filtering into an Evaluator backed by an
// aggregation pipeline instead.
func (ds *MongoDataset) Rows() []Row {
	ctx, cancel := context.WithTimeout(context.Background(), ds.operationTimeout)
	defer cancel()

	cursor, err := ds.db.Collection(activeMeasurementsCollection).Find(ctx, bson.D{})
	if err != nil {
		logger.ErrorF("metadata query failed: %v", err)
		return nil
	}
	defer cursor.Close(ctx)

	var rows []Row
	if err = cursor.All(ctx, &rows); err != nil {
		logger.ErrorF("metadata decode failed: %v", err)
		return nil
	}
	return rows
}

func (ds *MongoDataset) Marshal() ([]byte, error) {
	return bson.Marshal(ds.Rows())
}

// Upsert writes a single row, replacing any existing row with the same
// SignalID.
func (ds *MongoDataset) Upsert(row Row) error {
	if uuid.Equal(row.SignalID, uuid.Nil) {
		return ErrRowIDEmpty
	}

	ctx, cancel := context.WithTimeout(context.Background(), ds.operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "signal_id", Value: row.SignalID}}
	opts := options.Replace().SetUpsert(true)

	result, err := ds.db.Collection(activeMeasurementsCollection).ReplaceOne(ctx, filter, row, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("unique key conflicts: %w", err)
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("document does not exist: %w", err)
		}
		return fmt.Errorf("metadata operation failed: %w", err)
	}

	logger.DebugF("Metadata row saved: signal_id=%s, matched=%d, modified=%d, upserted=%v",
		row.SignalID.String(),
		result.MatchedCount,
		result.ModifiedCount,
		result.UpsertedID != nil,
	)
	return nil
}

// Delete removes the row for a given signal, if present.
func (ds *MongoDataset) Delete(signalID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), ds.operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "signal_id", Value: signalID}}
	result, err := ds.db.Collection(activeMeasurementsCollection).DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("metadata operation failed: %w", err)
	}

	logger.DebugF("Metadata row deleted: signal_id=%s, deleted=%d", signalID.String(), result.DeletedCount)
	return nil
}
