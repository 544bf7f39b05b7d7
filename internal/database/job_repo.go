package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dandantas/boomerang/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobRepository is the MongoDB job store
type JobRepository struct {
	db         *MongoDB
	collection *mongo.Collection
	now        func() time.Time
}

// NewJobRepository creates a job repository that owns db
func NewJobRepository(db *MongoDB) *JobRepository {
	repo := newJobRepository(db.GetCollection(CollectionJobs))
	repo.db = db
	return repo
}

func newJobRepository(collection *mongo.Collection) *JobRepository {
	return &JobRepository{
		collection: collection,
		now:        time.Now,
	}
}

// Create inserts a new job
func (r *JobRepository) Create(ctx context.Context, job *model.Job) (model.JobSummary, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.collection.InsertOne(ctxTimeout, job); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.JobSummary{}, fmt.Errorf("%w: %s", model.ErrDuplicateKey, job.ID)
		}
		return model.JobSummary{}, model.NewStorageError("create job", err)
	}

	return job.Summary(), nil
}

// Get retrieves a job by id
func (r *JobRepository) Get(ctx context.Context, id string) (*model.Job, bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var job model.Job
	err := r.collection.FindOne(ctxTimeout, bson.M{"_id": id}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, model.NewStorageError("get job", err)
	}

	return &job, true, nil
}

// ListByStatus retrieves jobs in a status, newest first
func (r *JobRepository) ListByStatus(ctx context.Context, status model.JobStatus) ([]model.Job, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctxTimeout, bson.M{"status": status}, opts)
	if err != nil {
		return nil, model.NewStorageError("list jobs", err)
	}
	defer cursor.Close(ctxTimeout)

	jobs := []model.Job{}
	if err := cursor.All(ctxTimeout, &jobs); err != nil {
		return nil, model.NewStorageError("decode jobs", err)
	}

	return jobs, nil
}

// CompleteTerminal applies a terminal transition with a single conditional
// update, so a job already out of processing is never matched
func (r *JobRepository) CompleteTerminal(ctx context.Context, id string, completion model.JobCompletion) (model.JobSummary, bool, error) {
	if err := completion.Validate(); err != nil {
		return model.JobSummary{}, false, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	done := completion.Apply(model.Job{ID: id}, r.now())

	set := bson.M{
		"status":       done.Status,
		"completed_at": done.CompletedAt,
	}
	if done.Results != nil {
		set["results"] = done.Results
	} else {
		set["error_message"] = done.ErrorMessage
	}

	filter := bson.M{"_id": id, "status": model.StatusProcessing}
	result, err := r.collection.UpdateOne(ctxTimeout, filter, bson.M{"$set": set})
	if err != nil {
		return model.JobSummary{}, false, model.NewStorageError("complete job", err)
	}

	if result.MatchedCount == 0 {
		return model.JobSummary{}, false, nil
	}

	return done.Summary(), true, nil
}

// PurgeOlderThan deletes jobs by creation age regardless of status
func (r *JobRepository) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff, err := purgeCutoff(r.now(), days)
	if err != nil {
		return 0, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := r.collection.DeleteMany(ctxTimeout, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, model.NewStorageError("purge jobs", err)
	}

	slog.Debug("Purged jobs", "store", "mongo", "cutoff", cutoff, "count", result.DeletedCount)
	return result.DeletedCount, nil
}

// Ping checks the connection to the primary
func (r *JobRepository) Ping(ctx context.Context) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.collection.Database().Client().Ping(ctxTimeout, nil); err != nil {
		return model.NewStorageError("ping mongo", err)
	}
	return nil
}

// Close disconnects the owned client, if any
func (r *JobRepository) Close(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.Disconnect(ctx)
}
