package secrets

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"humpday-trader/internal/interfaces"
)

var ErrChecksum = errors.New("secret payload checksum mismatch")

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type accessFunc func(ctx context.Context, name string) (*secretmanagerpb.SecretPayload, error)

// GSM reads the latest version of secrets in one project.
type GSM struct {
	project string
	access  accessFunc
	close   func() error
}

var _ interfaces.SecretSource = (*GSM)(nil)

// NewGSM dials Secret Manager with application default credentials.
func NewGSM(ctx context.Context, project string) (*GSM, error) {
	if project == "" {
		return nil, errors.New("gsm: project is required")
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gsm client: %w", err)
	}
	access := func(ctx context.Context, name string) (*secretmanagerpb.SecretPayload, error) {
		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
		if err != nil {
			return nil, err
		}
		return resp.GetPayload(), nil
	}
	return &GSM{project: project, access: access, close: client.Close}, nil
}

func (g *GSM) versionName(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", g.project, name)
}

func (g *GSM) Secret(ctx context.Context, name string) (string, error) {
	payload, err := g.access(ctx, g.versionName(name))
	if status.Code(err) == codes.NotFound {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("gsm %s: %w", name, err)
	}
	data := payload.GetData()
	if payload.DataCrc32C != nil && int64(crc32.Checksum(data, castagnoli)) != payload.GetDataCrc32C() {
		return "", fmt.Errorf("gsm %s: %w", name, ErrChecksum)
	}
	return string(data), nil
}

func (g *GSM) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}
