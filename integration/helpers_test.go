//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/binfile/s3"
)

const (
	fixtureName   = "fixture.bin"
	minioUser     = "binfile"
	minioPassword = "binfile-secret"
	testBucket    = "binfile-test"
)

// fixture is served by every container. It is large enough to span many
// default-sized blocks and ends in a partial block.
var fixture = makeFixture(256<<10 + 123)

func makeFixture(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	copy(data, "ID3\x03\x00\x00\x00\x00\x01\x7f")
	return data
}

func skipWithoutDocker(tb testing.TB) {
	tb.Helper()
	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}
}

// --- nginx ---

var (
	nginxOnce sync.Once
	nginxURL  string
	nginxErr  error
)

// getNginx returns the base URL of a shared nginx container serving fixture.
func getNginx(tb testing.TB) string {
	tb.Helper()
	skipWithoutDocker(tb)

	nginxOnce.Do(func() {
		nginxURL, nginxErr = startNginxContainer(context.Background())
	})
	if nginxErr != nil {
		tb.Fatalf("start nginx container: %v", nginxErr)
	}
	return nginxURL
}

func startNginxContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "nginx:1.27-alpine",
		ExposedPorts: []string{"80/tcp"},
		Files: []testcontainers.ContainerFile{{
			Reader:            bytes.NewReader(fixture),
			ContainerFilePath: "/usr/share/nginx/html/" + fixtureName,
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForHTTP("/" + fixtureName).WithPort("80/tcp").WithStatusCodeMatcher(isOKStatus),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start nginx container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "80/tcp", "http")
	if err != nil {
		return "", fmt.Errorf("resolve nginx endpoint: %w", err)
	}
	return endpoint, nil
}

// --- MinIO ---

var (
	minioOnce     sync.Once
	minioEndpoint string
	minioErr      error
)

// getMinIO returns the endpoint of a shared MinIO container whose test
// bucket holds fixture.
func getMinIO(tb testing.TB) string {
	tb.Helper()
	skipWithoutDocker(tb)

	minioOnce.Do(func() {
		ctx := context.Background()
		minioEndpoint, minioErr = startMinIOContainer(ctx)
		if minioErr == nil {
			minioErr = seedBucket(ctx, minioEndpoint)
		}
	})
	if minioErr != nil {
		tb.Fatalf("start minio container: %v", minioErr)
	}
	return minioEndpoint
}

func startMinIOContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStatusCodeMatcher(isOKStatus),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start minio container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "http")
	if err != nil {
		return "", fmt.Errorf("resolve minio endpoint: %w", err)
	}
	return endpoint, nil
}

func seedBucket(ctx context.Context, endpoint string) error {
	client, err := s3.NewClient(ctx, minioConfig(endpoint))
	if err != nil {
		return err
	}
	if _, err := client.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(testBucket)}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	_, err = client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(testBucket),
		Key:    aws.String(fixtureName),
		Body:   bytes.NewReader(fixture),
	})
	if err != nil {
		return fmt.Errorf("put fixture: %w", err)
	}
	return nil
}

func minioConfig(endpoint string) s3.Config {
	return s3.Config{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     minioUser,
		SecretAccessKey: minioPassword,
	}
}

func newMinIOClient(tb testing.TB) *awss3.Client {
	tb.Helper()
	endpoint := getMinIO(tb)
	client, err := s3.NewClient(context.Background(), minioConfig(endpoint))
	require.NoError(tb, err, "create s3 client")
	return client
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}
