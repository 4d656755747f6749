package repository

import (
	"context"
	"fmt"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
)

// ConnectCouchDB opens the CouchDB server at url and creates dbName when it
// does not exist yet.
func ConnectCouchDB(ctx context.Context, url, dbName string) (*kivik.Client, bool, error) {
	client, err := kivik.New("couch", url)
	if err != nil {
		return nil, false, fmt.Errorf("failed to connect to CouchDB: %w", err)
	}

	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check database existence: %w", err)
	}

	if exists {
		return client, false, nil
	}
	if err := client.CreateDB(ctx, dbName); err != nil {
		return nil, false, fmt.Errorf("failed to create database: %w", err)
	}
	return client, true, nil
}
