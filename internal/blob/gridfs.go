package blob

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps objects in a MongoDB GridFS bucket; the storage path is
// the hex ObjectID of the stored file.
type GridFSStore struct {
	db *mongo.Database
}

func NewGridFSStore(uri, dbName string) (*GridFSStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &GridFSStore{db: client.Database(dbName)}, nil
}

func (s *GridFSStore) Save(name string, r io.Reader) (string, error) {
	bucket, err := gridfs.NewBucket(s.db)
	if err != nil {
		return "", err
	}

	stream, err := bucket.OpenUploadStream(name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(stream, r); err != nil {
		stream.Close()
		return "", err
	}
	if err := stream.Close(); err != nil {
		return "", err
	}
	return stream.FileID.(primitive.ObjectID).Hex(), nil
}

func (s *GridFSStore) Open(path string) (io.ReadCloser, error) {
	bucket, err := gridfs.NewBucket(s.db)
	if err != nil {
		return nil, err
	}

	objID, err := primitive.ObjectIDFromHex(path)
	if err != nil {
		return nil, ErrNotFound
	}

	stream, err := bucket.OpenDownloadStream(objID)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (s *GridFSStore) Delete(path string) error {
	bucket, err := gridfs.NewBucket(s.db)
	if err != nil {
		return err
	}

	objID, err := primitive.ObjectIDFromHex(path)
	if err != nil {
		return ErrNotFound
	}
	if err := bucket.Delete(objID); errors.Is(err, gridfs.ErrFileNotFound) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return nil
}
