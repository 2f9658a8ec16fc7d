package s3

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosh/fallen-8-core-sub000/blobstore"
)

// fakeDDB is an in-memory DynamoDB table keyed by (base_uri, version).
type fakeDDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: make(map[string]map[string]types.AttributeValue)}
}

func (m *fakeDDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *fakeDDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value
	version := func(item map[string]types.AttributeValue) uint64 {
		v, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return v
	}

	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b map[string]types.AttributeValue) int {
		va, vb := version(a), version(b)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		}
		return 0
	})
	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func newTestCommitStore(ddb *fakeDDB, baseURI string) (*CommitStore, *blobstore.MemoryStore) {
	inner := blobstore.NewMemoryStore()
	return NewCommitStore(inner, ddb, "fallen8-commits", baseURI), inner
}

func TestCommitStore_Commits(t *testing.T) {
	ctx := context.Background()
	store, inner := newTestCommitStore(newFakeDDB(), "s3://bucket/graphs/")

	_, err := store.Get(ctx, CurrentName)
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	// More than nine versions to catch lexical version ordering.
	for i := 1; i <= 12; i++ {
		require.NoError(t, store.Put(ctx, CurrentName, []byte(fmt.Sprintf("savegame-%05d.f8sg", i))))
	}
	got, err := store.Get(ctx, CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "savegame-00012.f8sg", string(got))

	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), v)

	// Other blobs go to the inner store; CURRENT never does.
	require.NoError(t, store.Put(ctx, "savegame-00012.f8sg", []byte("body")))
	assert.Equal(t, 1, inner.Len())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{CurrentName, "savegame-00012.f8sg"}, names)

	names, err = store.List(ctx, "savegame")
	require.NoError(t, err)
	assert.Equal(t, []string{"savegame-00012.f8sg"}, names)

	require.NoError(t, store.Delete(ctx, CurrentName))
	_, err = store.Get(ctx, CurrentName)
	require.NoError(t, err)
}

func TestCommitStore_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestCommitStore(newFakeDDB(), "s3://bucket/graphs/")
	require.NoError(t, store.Put(ctx, CurrentName, []byte("first")))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Put(ctx, CurrentName, []byte(fmt.Sprintf("writer-%d", i)))
			if err != nil && !errors.Is(err, ErrConcurrentModification) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Positive(t, successes)
	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1+successes), v)
}

func TestCommitStore_IsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDB()
	a, _ := newTestCommitStore(ddb, "s3://bucket-a/path/")
	b, _ := newTestCommitStore(ddb, "s3://bucket-b/path/")

	require.NoError(t, a.Put(ctx, CurrentName, []byte("A")))
	require.NoError(t, b.Put(ctx, CurrentName, []byte("B")))

	got, err := a.Get(ctx, CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))
	got, err = b.Get(ctx, CurrentName)
	require.NoError(t, err)
	assert.Equal(t, "B", string(got))
}
