package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/soumenms2015/tuplex/spill"
)

// ErrConcurrentModification is returned when another writer committed
// a manifest version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// DDBClient is the subset of the DynamoDB API the commit store needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore wraps an S3 store with DynamoDB-backed CURRENT-pointer
// commits. S3 has no compare-and-swap, so flipping the pointer by
// overwriting an object can silently drop a concurrent writer's
// manifest. The commit store instead records each manifest version as
// a DynamoDB item under a conditional put, making the flip atomic.
//
// Table schema: partition key base_uri (S), sort key version (N).
type CommitStore struct {
	blobs     *Store
	ddb       DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a commit store. baseURI identifies the
// dataset location (e.g. "s3://bucket/prefix") and is used as the
// table partition key.
func NewCommitStore(blobs *Store, ddb DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		blobs:     blobs,
		ddb:       ddb,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Open opens a blob. The CURRENT pointer is materialized from the
// latest DynamoDB item instead of an S3 object.
func (s *CommitStore) Open(ctx context.Context, name string) (spill.Blob, error) {
	if isCurrent(name) {
		version, manifestPath, err := s.latestVersion(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, spill.ErrNotFound
		}
		return &pointerBlob{content: []byte(manifestPath)}, nil
	}
	return s.blobs.Open(ctx, name)
}

// Put writes a blob. Writing the CURRENT pointer becomes a conditional
// version commit.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if isCurrent(name) {
		return s.commitVersion(ctx, string(data))
	}
	return s.blobs.Put(ctx, name, data)
}

// Create creates a writable blob.
func (s *CommitStore) Create(ctx context.Context, name string) (spill.WritableBlob, error) {
	return s.blobs.Create(ctx, name)
}

// Delete removes a blob.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	return s.blobs.Delete(ctx, name)
}

// List lists blobs with prefix.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.blobs.List(ctx, prefix)
}

func isCurrent(name string) bool {
	if name == spill.CurrentFileName {
		return true
	}
	n := len(name) - len(spill.CurrentFileName)
	return n > 0 && name[n-1] == '/' && name[n:] == spill.CurrentFileName
}

// latestVersion queries the newest committed version for this dataset.
func (s *CommitStore) latestVersion(ctx context.Context) (uint64, string, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":uri": &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query commit log: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in commit log")
	}
	pathAttr, ok := item["manifest_path"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid manifest_path attribute in commit log")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse version: %w", err)
	}
	return version, pathAttr.Value, nil
}

// commitVersion appends the next version under a conditional put. Two
// writers racing on the same version number leave exactly one winner;
// the loser sees ErrConcurrentModification and must retry on top of
// the new state.
func (s *CommitStore) commitVersion(ctx context.Context, manifestPath string) error {
	current, _, err := s.latestVersion(ctx)
	if err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"base_uri":      &ddbtypes.AttributeValueMemberS{Value: s.baseURI},
			"version":       &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(current+1, 10)},
			"manifest_path": &ddbtypes.AttributeValueMemberS{Value: manifestPath},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("commit version: %w", err)
	}
	return nil
}

// pointerBlob serves the resolved CURRENT content from memory.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error { return nil }

func (b *pointerBlob) Size() int64 { return int64(len(b.content)) }

func (b *pointerBlob) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *pointerBlob) Bytes() ([]byte, error) { return b.content, nil }
