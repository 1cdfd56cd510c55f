package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app and the service clients built from it.
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	Firestore   *firestore.Client
	Bucket      *gcs.BucketHandle
	BucketName  string
}

// Options selects the project and default storage bucket.
type Options struct {
	CredentialsPath string
	ProjectID       string
	StorageBucket   string
}

// InitFirebase initializes the Firebase application together with its auth, Firestore
// and storage clients.
func InitFirebase(ctx context.Context, opts Options) (*App, error) {
	if opts.CredentialsPath == "" {
		return nil, fmt.Errorf("Firebase credentials path not provided")
	}

	if _, err := os.Stat(opts.CredentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("Firebase credentials file not found at %s", opts.CredentialsPath)
	}

	conf := &firebase.Config{
		ProjectID:     opts.ProjectID,
		StorageBucket: opts.StorageBucket,
	}
	firebaseApp, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(opts.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	fs, err := firebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	app := &App{FirebaseApp: firebaseApp, AuthClient: authClient, Firestore: fs}

	if opts.StorageBucket != "" {
		storageClient, err := firebaseApp.Storage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting firebase storage client: %w", err)
		}
		bucket, err := storageClient.DefaultBucket()
		if err != nil {
			return nil, fmt.Errorf("error opening storage bucket %s: %w", opts.StorageBucket, err)
		}
		app.Bucket = bucket
		app.BucketName = opts.StorageBucket
	}

	return app, nil
}

// Close releases the Firestore connection.
func (a *App) Close() error {
	if a.Firestore != nil {
		return a.Firestore.Close()
	}
	return nil
}
