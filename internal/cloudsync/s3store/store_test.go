package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"orbit/internal/cloudsync"
	"orbit/internal/library"
	"orbit/internal/logging"
)

type object struct {
	body     []byte
	metadata map[string]string
	modified time.Time
	etag     string
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	version int
	// headFailures makes the next n HeadObject calls fail.
	headFailures int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]object)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	modified := obj.modified
	return &s3.GetObjectOutput{
		Body:         io.NopCloser(bytes.NewReader(obj.body)),
		Metadata:     obj.metadata,
		LastModified: &modified,
		ETag:         aws.String(obj.etag),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version++
	f.objects[aws.ToString(in.Key)] = object{
		body:     data,
		metadata: in.Metadata,
		modified: time.Date(2025, 5, 1, 0, 0, f.version, 0, time.UTC),
		etag:     fmt.Sprintf(`"v%d"`, f.version),
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headFailures > 0 {
		f.headFailures--
		return nil, errors.New("connection reset by peer")
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ETag: aws.String(obj.etag)}, nil
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := NewWithAPI(newFakeS3(), "bucket", time.Second, logging.NewNop())
	doc, err := store.Get(context.Background(), "users/u1/library")
	if err != nil || doc != nil {
		t.Fatalf("expected nil document, got %#v, %v", doc, err)
	}
}

func TestSetThenGet(t *testing.T) {
	api := newFakeS3()
	store := NewWithAPI(api, "bucket", time.Second, logging.NewNop())
	ctx := context.Background()

	err := store.Set(ctx, "users/u1/library", cloudsync.Document{
		Games:    []library.Game{{ID: "a", Title: "Hades", Playtime: 10}},
		DeviceID: "device-1",
	})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := api.objects["users/u1/library.json"]; !ok {
		t.Fatalf("expected object key with .json suffix, have %v", api.objects)
	}

	doc, err := store.Get(ctx, "users/u1/library")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.DeviceID != "device-1" || len(doc.Games) != 1 || doc.Games[0].Playtime != 10 {
		t.Fatalf("unexpected document: %#v", doc)
	}
	if doc.UpdatedAt.IsZero() {
		t.Fatal("expected server timestamp")
	}
}

func TestSubscribeDeliversChanges(t *testing.T) {
	api := newFakeS3()
	store := NewWithAPI(api, "bucket", 10*time.Millisecond, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Set(ctx, "p", cloudsync.Document{DeviceID: "before"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	received := make(chan cloudsync.Document, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Subscribe(ctx, "p", func(doc cloudsync.Document) { received <- doc })
	}()

	// Let the subscriber record the starting ETag before the change.
	time.Sleep(30 * time.Millisecond)
	if err := store.Set(ctx, "p", cloudsync.Document{DeviceID: "other"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case doc := <-received:
		if doc.DeviceID != "other" {
			t.Fatalf("expected changed document, got %#v", doc)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestSubscribeSurvivesFailedFirstPoll(t *testing.T) {
	api := newFakeS3()
	store := NewWithAPI(api, "bucket", 10*time.Millisecond, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Set(ctx, "p", cloudsync.Document{DeviceID: "other"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	api.mu.Lock()
	api.headFailures = 2
	api.mu.Unlock()

	received := make(chan cloudsync.Document, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Subscribe(ctx, "p", func(doc cloudsync.Document) { received <- doc })
	}()

	select {
	case doc := <-received:
		if doc.DeviceID != "other" {
			t.Fatalf("unexpected document: %#v", doc)
		}
	case err := <-done:
		t.Fatalf("Subscribe returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("document not delivered after the bucket recovered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}
