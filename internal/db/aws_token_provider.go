package db

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
)

// rdsTokenLifetime is how long AWS accepts an RDS auth token.
const rdsTokenLifetime = 15 * time.Minute

// AWSIAMTokenProvider signs RDS IAM auth tokens with the default AWS
// credential chain. The token replaces the password of the loader's
// postgres login.
type AWSIAMTokenProvider struct {
	endpoint string // host:port
	region   string
	username string
}

// NewAWSIAMTokenProvider validates the RDS endpoint and login. An empty
// region is taken from the endpoint host when it is an RDS hostname
// ("db.abc123.eu-west-1.rds.amazonaws.com").
func NewAWSIAMTokenProvider(endpoint, region, username string) (*AWSIAMTokenProvider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("RDS IAM auth needs the server endpoint (host:port)")
	}
	if username == "" {
		return nil, fmt.Errorf("RDS IAM auth needs the username from the secret")
	}
	if region == "" {
		region = RegionFromEndpoint(endpoint)
	}
	if region == "" {
		return nil, fmt.Errorf("RDS IAM auth needs aws_region: %s is not an RDS hostname", endpoint)
	}

	return &AWSIAMTokenProvider{
		endpoint: endpoint,
		region:   region,
		username: username,
	}, nil
}

// RegionFromEndpoint returns the region label of an RDS hostname, or ""
// when host is not one.
func RegionFromEndpoint(endpoint string) string {
	host := endpoint
	if h, _, err := net.SplitHostPort(endpoint); err == nil {
		host = h
	}
	labels := strings.Split(strings.ToLower(strings.TrimSuffix(host, ".")), ".")
	for i := 1; i+1 < len(labels); i++ {
		if labels[i] == "rds" && labels[i+1] == "amazonaws" {
			return labels[i-1]
		}
	}
	return ""
}

// GetToken signs a fresh token for the next physical connection.
func (p *AWSIAMTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(p.region))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load AWS credentials: %w", err)
	}

	issued := time.Now()
	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, cfg.Credentials)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign RDS auth token for %s: %w", p.username, err)
	}
	return token, issued.Add(rdsTokenLifetime), nil
}

func (p *AWSIAMTokenProvider) String() string {
	return fmt.Sprintf("RDS IAM %s@%s (%s)", p.username, p.endpoint, p.region)
}
