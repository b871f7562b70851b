package firebase

import (
	"context"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app and its clients. Database is nil
// when no database URL was configured.
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	Database    *db.Client
}

// InitFirebase initializes the Firebase application, the authentication
// client and, given a database URL, the Realtime Database client
func InitFirebase(ctx context.Context, credentialsPath, databaseURL string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("Firebase credentials path not provided")
	}

	// Check if the credentials file exists
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("Firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	var conf *firebase.Config
	if databaseURL != "" {
		conf = &firebase.Config{DatabaseURL: databaseURL}
	}
	firebaseApp, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	app := &App{FirebaseApp: firebaseApp, AuthClient: authClient}
	if databaseURL != "" {
		if app.Database, err = firebaseApp.Database(ctx); err != nil {
			return nil, fmt.Errorf("error getting firebase database client: %w", err)
		}
	}

	log.Println("Firebase app and clients initialized successfully!")
	return app, nil
}
