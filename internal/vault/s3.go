package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"ecotermo/internal/config"
	"ecotermo/internal/eco"
)

// versionMetaKey is the object metadata key carrying a metadata item's version.
const versionMetaKey = "ecotermo-version"

// S3API is the subset of the S3 client used by S3Vault.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores content and metadata as objects in a bucket:
//
//	<prefix>/content/<checksum>
//	<prefix>/metadata/<actor>/<name>   (version in object metadata)
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   S3API
	uploader *manager.Uploader
}

// NewS3Vault creates a vault backed by client.
func NewS3Vault(name, bucket, prefix string, client S3API) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// NewS3VaultFromConfig builds an S3 client from the vault config. Static
// credentials are used when both keys are set; otherwise the default AWS
// credential chain applies.
func NewS3VaultFromConfig(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return NewS3Vault(cfg.Name, cfg.S3Bucket, cfg.S3Prefix, client), nil
}

func (v *S3Vault) contentKey(checksum string) string {
	return path.Join(v.prefix, "content", checksum)
}

func (v *S3Vault) metadataKey(actor, name string) string {
	return path.Join(v.prefix, "metadata", actor, name)
}

// PutContent uploads content unless an object with the checksum exists.
func (v *S3Vault) PutContent(checksum string, r io.Reader, size int64) error {
	if err := validName(checksum); err != nil {
		return err
	}
	ctx := context.Background()
	key := v.contentKey(checksum)

	_, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(v.bucket), Key: aws.String(key)})
	if err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("checking content %s: %w", checksum, err)
	}

	return v.upload(ctx, key, r, size, nil)
}

// GetContent downloads content by checksum and writes it to w.
func (v *S3Vault) GetContent(checksum string, w io.Writer) error {
	if err := validName(checksum); err != nil {
		return err
	}
	return v.download(context.Background(), v.contentKey(checksum), w, contentNotFound(checksum))
}

// PutMetadata uploads a metadata item with its version attached.
func (v *S3Vault) PutMetadata(actor string, name string, r io.Reader, size int64, version int64) error {
	if err := validName(actor); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	meta := map[string]string{versionMetaKey: strconv.FormatInt(version, 10)}
	return v.upload(context.Background(), v.metadataKey(actor, name), r, size, meta)
}

// GetMetadata downloads a metadata item and writes it to w.
func (v *S3Vault) GetMetadata(actor string, name string, w io.Writer) error {
	return v.download(context.Background(), v.metadataKey(actor, name), w, metadataNotFound(actor, name))
}

// GetMetadataVersion returns 0 if the metadata object does not exist.
func (v *S3Vault) GetMetadataVersion(actor string, name string) (int64, error) {
	out, err := v.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.metadataKey(actor, name)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading metadata version: %w", err)
	}

	raw, ok := out.Metadata[versionMetaKey]
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup checks that the bucket is reachable.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{Bucket: aws.String(v.bucket)})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// upload buffers the body so a short reader is caught before anything is
// written to the bucket.
func (v *S3Vault) upload(ctx context.Context, key string, r io.Reader, size int64, meta map[string]string) error {
	var buf bytes.Buffer
	written, err := io.Copy(&buf, r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	_, err = v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
		Metadata:      meta,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (v *S3Vault) download(ctx context.Context, key string, w io.Writer, notFound error) error {
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(v.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return notFound
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

// Compile-time check that S3Vault implements eco.Vault interface
var _ eco.Vault = (*S3Vault)(nil)
