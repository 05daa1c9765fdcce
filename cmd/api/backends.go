package main

import (
	"context"

	firebase "firebase.google.com/go"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/PaulBabatuyi/messenger-sync/internal/config"
	"github.com/PaulBabatuyi/messenger-sync/internal/db"
	"github.com/PaulBabatuyi/messenger-sync/internal/media"
	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

// backends owns the connections opened for the configured store and media
// backends.
type backends struct {
	cfg      *config.Config
	firebase *firebase.App
	closers  []func(context.Context) error
}

func (b *backends) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if b.firebase != nil {
		return b.firebase, nil
	}
	var opts []option.ClientOption
	if b.cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(b.cfg.FirebaseCredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL:   b.cfg.FirebaseDatabaseURL,
		StorageBucket: b.cfg.FirebaseStorageBucket,
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initialize firebase app")
	}
	b.firebase = app
	return app, nil
}

func (b *backends) openStore(ctx context.Context) (store.Store, error) {
	switch b.cfg.StoreBackend {
	case "memory":
		glog.Warning("using in-memory store; data is lost on exit")
		return store.NewMemory(), nil

	case "mongo":
		client, err := db.New(ctx, b.cfg.MongoURI)
		if err != nil {
			return nil, errors.Wrap(err, "connect to mongodb")
		}
		b.closers = append(b.closers, client.Close)
		return store.NewMongo(client.NodesCollection(), b.cfg.PollInterval), nil

	case "sqlite":
		s, err := store.OpenSQLite(b.cfg.SQLiteDir, b.cfg.PollInterval)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return s.Close() })
		return s, nil

	case "firebase":
		app, err := b.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		client, err := app.Database(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "open firebase database")
		}
		return store.NewFirebase(client, b.cfg.PollInterval), nil
	}
	return nil, errors.Errorf("unknown store backend %q", b.cfg.StoreBackend)
}

func (b *backends) openMedia(ctx context.Context) (media.Backend, error) {
	switch b.cfg.MediaBackend {
	case "memory":
		return media.NewMemory(), nil

	case "firebase":
		app, err := b.firebaseApp(ctx)
		if err != nil {
			return nil, err
		}
		client, err := app.Storage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "open firebase storage")
		}
		return media.NewFirebaseStorage(client, b.cfg.FirebaseStorageBucket)

	case "s3":
		return media.NewS3(ctx, media.S3Options{
			Bucket:          b.cfg.S3Bucket,
			Region:          b.cfg.AWSRegion,
			AccessKeyID:     b.cfg.AWSAccessKeyID,
			SecretAccessKey: b.cfg.AWSSecretAccessKey,
		})
	}
	return nil, errors.Errorf("unknown media backend %q", b.cfg.MediaBackend)
}

// close releases connections in reverse order of opening.
func (b *backends) close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			glog.Warningf("closing backend: %v", err)
		}
	}
}
