package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrNotFound is returned by a Source for names it does not hold.
var ErrNotFound = errors.New("assets: not found")

// Asset is an open asset. The caller closes Body.
type Asset struct {
	Body        io.ReadCloser
	Size        int64 // -1 when unknown
	ContentType string
	ModTime     time.Time
	ETag        string
}

// Source holds the build output. Names are slash separated and relative to
// the output root, e.g. "_next/static/chunks/main.3c4d5e6f.js".
type Source interface {
	Open(ctx context.Context, name string) (*Asset, error)
}

func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// =============================================================================
// fs.FS
// =============================================================================

// FS serves assets from a file system: os.DirFS for a build directory or an
// embed.FS compiled into the binary.
type FS struct {
	FS fs.FS
}

// NewFS returns a Source reading from fsys.
func NewFS(fsys fs.FS) *FS {
	return &FS{FS: fsys}
}

// Open implements Source.
func (s *FS) Open(_ context.Context, name string) (*Asset, error) {
	f, err := s.FS.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &Asset{
		Body:        f,
		Size:        info.Size(),
		ContentType: contentTypeOf(name),
		ModTime:     info.ModTime(),
	}, nil
}

// =============================================================================
// S3
// =============================================================================

// S3 serves assets from an S3 bucket under a key prefix.
//
//	client := assets.NewAnonymousS3Client("eu-west-1", "")
//	src := assets.NewS3(client, "my-builds", "site/v42/")
type S3 struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

// NewS3 returns a Source reading objects Prefix+name from bucket.
func NewS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{Client: client, Bucket: bucket, Prefix: prefix}
}

// NewAnonymousS3Client returns a client for public buckets. A non-empty
// endpoint selects an S3-compatible store addressed path style.
func NewAnonymousS3Client(region, endpoint string) *s3.Client {
	return s3.New(s3.Options{
		Region:       region,
		Credentials:  aws.AnonymousCredentials{},
		UsePathStyle: endpoint != "",
		BaseEndpoint: optionalString(endpoint),
	})
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// Open implements Source.
func (s *S3) Open(ctx context.Context, name string) (*Asset, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + name),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("assets: s3 get %s: %w", name, err)
	}

	a := &Asset{
		Body:        out.Body,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        aws.ToString(out.ETag),
		ModTime:     aws.ToTime(out.LastModified),
	}
	if out.ContentLength == nil {
		a.Size = -1
	}
	if a.ContentType == "" || a.ContentType == "binary/octet-stream" {
		a.ContentType = contentTypeOf(name)
	}
	return a, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == 404
}
