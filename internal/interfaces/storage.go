package interfaces

import "context"

//go:generate mockgen -package=mock -source=storage.go -destination=mock/storage.go

// Storage is the persistent key/value collaborator the engine mirrors its store into.
// Read reports found=false for an absent key; that is not an error.
type Storage interface {
	Read(ctx context.Context, key string) (data []byte, found bool, err error)
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}
