package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stays/internal/cache"
	"stays/internal/models"
	"stays/internal/services"
)

// Task types.
const (
	TypeListingIndex = "search:index:listing"
	TypeIndexRebuild = "search:index:rebuild"
)

// QueueIndex is the queue index maintenance runs on.
const QueueIndex = "index"

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// NewClient creates an asynq client on the same Redis as rdb.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Enqueuer is the part of *asynq.Client the index queue needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ListingIndexPayload identifies the listing whose index document must be refreshed.
type ListingIndexPayload struct {
	ListingID string `json:"listing_id"`
}

// NewListingIndexTask builds a task refreshing one listing's index document.
func NewListingIndexTask(listingID primitive.ObjectID) (*asynq.Task, error) {
	payload, err := json.Marshal(ListingIndexPayload{ListingID: listingID.Hex()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal listing index payload: %w", err)
	}
	return asynq.NewTask(TypeListingIndex, payload), nil
}

// IndexQueue implements services.IndexQueue on asynq.
type IndexQueue struct {
	client Enqueuer
}

var _ services.IndexQueue = (*IndexQueue)(nil)

// NewIndexQueue creates an IndexQueue.
func NewIndexQueue(client Enqueuer) *IndexQueue {
	return &IndexQueue{client: client}
}

// EnqueueListingIndex schedules a refresh of one listing's index document.
func (q *IndexQueue) EnqueueListingIndex(ctx context.Context, listingID primitive.ObjectID) error {
	task, err := NewListingIndexTask(listingID)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueIndex), asynq.MaxRetry(10)); err != nil {
		return fmt.Errorf("failed to enqueue index task for listing %s: %w", listingID.Hex(), err)
	}
	return nil
}

// EnqueueIndexRebuild schedules a full rebuild. A rebuild already queued absorbs the request.
func (q *IndexQueue) EnqueueIndexRebuild(ctx context.Context) error {
	task := asynq.NewTask(TypeIndexRebuild, nil)
	_, err := q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueIndex),
		asynq.MaxRetry(3),
		asynq.Unique(10*time.Minute),
		asynq.Timeout(30*time.Minute),
	)
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("failed to enqueue index rebuild: %w", err)
	}
	return nil
}

// --- Task Server (Processing tasks) ---

// ListingIndexer writes listing documents to the search index.
type ListingIndexer interface {
	EnsureIndex(ctx context.Context) (bool, error)
	UpsertListing(ctx context.Context, l *models.Listing) error
	DeleteListing(ctx context.Context, id primitive.ObjectID) error
	Refresh(ctx context.Context) error
}

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	listingService services.IListingService
	indexer        ListingIndexer
	indexHealth    cache.IndexHealth
}

// NewTaskProcessor creates a TaskProcessor. indexHealth may be nil.
func NewTaskProcessor(listingService services.IListingService, indexer ListingIndexer, indexHealth cache.IndexHealth) *TaskProcessor {
	return &TaskProcessor{
		listingService: listingService,
		indexer:        indexer,
		indexHealth:    indexHealth,
	}
}

// SetupServer configures an Asynq server and the mux routing task types to processor.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				QueueIndex: 5,
				"default":  1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeListingIndex, processor.HandleListingIndexTask)
	mux.HandleFunc(TypeIndexRebuild, processor.HandleIndexRebuildTask)
	fmt.Println("Registered search index task handlers.")

	return srv, mux
}

// --- Task Handlers ---

// HandleListingIndexTask mirrors one listing into the index. Missing or inactive
// listings are removed from it.
func (p *TaskProcessor) HandleListingIndexTask(ctx context.Context, t *asynq.Task) error {
	var payload ListingIndexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal listing index payload: %v: %w", err, asynq.SkipRetry)
	}
	listingID, err := primitive.ObjectIDFromHex(payload.ListingID)
	if err != nil {
		log.Printf("Invalid ListingID in index task payload: %s", payload.ListingID)
		return fmt.Errorf("invalid listing ID in payload: %w", asynq.SkipRetry)
	}

	listing, err := p.listingService.FindListingByID(ctx, listingID)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return err
	}
	if listing == nil || !listing.IsActive {
		if err := p.indexer.DeleteListing(ctx, listingID); err != nil {
			return err
		}
		log.Printf("Removed listing %s from the search index", payload.ListingID)
		return nil
	}

	if err := p.indexer.UpsertListing(ctx, listing); err != nil {
		return err
	}
	log.Printf("Indexed listing %s", payload.ListingID)
	return nil
}

// HandleIndexRebuildTask creates the index if needed and re-indexes every active listing.
func (p *TaskProcessor) HandleIndexRebuildTask(ctx context.Context, t *asynq.Task) error {
	log.Println("Starting search index rebuild...")

	created, err := p.indexer.EnsureIndex(ctx)
	if err != nil {
		return err
	}
	if created {
		log.Println("Search index created.")
	}

	count := 0
	err = p.listingService.ForEachActiveListing(ctx, func(l *models.Listing) error {
		if err := p.indexer.UpsertListing(ctx, l); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		log.Printf("Index rebuild stopped after %d listings: %v", count, err)
		return err
	}

	if err := p.indexer.Refresh(ctx); err != nil {
		return err
	}
	if p.indexHealth != nil {
		p.indexHealth.MarkUp(ctx)
	}
	log.Printf("Search index rebuild finished. Indexed %d listings.", count)
	return nil
}
