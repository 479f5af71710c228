package mirror

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/ecolyze/ecolyze/internal/config"
	"github.com/ecolyze/ecolyze/internal/model"
)

// MongoMirror implements Mirror against a MongoDB deployment.
type MongoMirror struct {
	client   *mongo.Client
	database string
	coll     string
}

// NewMongo connects to the configured deployment and verifies the
// connection with a ping.
func NewMongo(ctx context.Context, cfg config.MirrorConfig) (*MongoMirror, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, eris.Wrap(err, "mirror: connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, eris.Wrap(err, "mirror: ping")
	}
	return &MongoMirror{client: client, database: cfg.Database, coll: cfg.Collection}, nil
}

// Replace implements Mirror using a staged swap: the rows are written
// to a staging collection which is then renamed over the target with
// dropTarget, so the old contents stay readable until the swap.
func (m *MongoMirror) Replace(ctx context.Context, rows []model.SummaryRow) error {
	db := m.client.Database(m.database)
	staging := stagingName(m.coll)

	if err := db.Collection(staging).Drop(ctx); err != nil {
		return eris.Wrapf(err, "mirror: drop stale staging %s", staging)
	}

	if len(rows) > 0 {
		if _, err := db.Collection(staging).InsertMany(ctx, docsFromSummary(rows)); err != nil {
			return eris.Wrapf(err, "mirror: insert %d rows into %s", len(rows), staging)
		}
	} else {
		// renameCollection requires the source to exist.
		if err := db.CreateCollection(ctx, staging); err != nil {
			return eris.Wrapf(err, "mirror: create empty staging %s", staging)
		}
	}

	cmd := renameCommand(m.database, staging, m.coll)
	if err := m.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return eris.Wrapf(err, "mirror: swap %s into %s", staging, m.coll)
	}

	zap.L().Info("mirror replaced",
		zap.String("collection", m.coll),
		zap.Int("rows", len(rows)),
	)
	return nil
}

// Close implements Mirror.
func (m *MongoMirror) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func stagingName(coll string) string {
	return coll + "_staging"
}

func docsFromSummary(rows []model.SummaryRow) []any {
	docs := make([]any, len(rows))
	for i, row := range rows {
		docs[i] = row
	}
	return docs
}

// renameCommand builds the admin renameCollection command that
// atomically swaps staging over the target.
func renameCommand(database, from, to string) bson.D {
	return bson.D{
		{Key: "renameCollection", Value: database + "." + from},
		{Key: "to", Value: database + "." + to},
		{Key: "dropTarget", Value: true},
	}
}
