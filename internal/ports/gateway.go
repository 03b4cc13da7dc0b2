package ports

import (
	"context"

	"ragdesk/internal/domain"
)

// CollectionGateway manages collections on the backend
type CollectionGateway interface {
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error)
	DeleteCollection(ctx context.Context, name string) error
}

// FileGateway manages files inside a collection.
// An empty folder addresses the collection root.
type FileGateway interface {
	ListFiles(ctx context.Context, collection string) (*domain.FileListing, error)
	ReadFile(ctx context.Context, collection, filename, folder string) (string, error)
	SaveFile(ctx context.Context, collection string, req domain.SaveFileRequest) (*domain.FileMetadata, error)
	UpdateFile(ctx context.Context, collection, filename, folder, content string) error
	DeleteFile(ctx context.Context, collection, filename, folder string) error
}

// CrawlGateway crawls pages into a collection
type CrawlGateway interface {
	CrawlToCollection(ctx context.Context, collection string, req domain.CrawlRequest) (*domain.CrawlResult, error)
}

// VectorSyncGateway drives embedding jobs. SyncCollection only reports
// acceptance; progress is observed by polling GetSyncStatus.
type VectorSyncGateway interface {
	GetSyncStatus(ctx context.Context, collection string) (*domain.VectorSyncStatus, error)
	ListSyncStatuses(ctx context.Context) (map[string]domain.VectorSyncStatus, error)
	SyncCollection(ctx context.Context, collection string, req domain.SyncRequest) error
	EnableSync(ctx context.Context, collection string) error
	DisableSync(ctx context.Context, collection string) error
	DeleteVectors(ctx context.Context, collection string) error
}

// Gateway is the complete backend surface consumed by the application
type Gateway interface {
	CollectionGateway
	FileGateway
	CrawlGateway
	VectorSyncGateway
}
