package issuer_test

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/issuer/pkg/issuersdk"
)

/*
 * Shared setup for the issuer end-to-end tests. Every test gets its own
 * network with a local anvil node, a Redis for the limiter and the issuer
 * image built once in TestMain.
 */

const (
	testImageName = "credential-issuer-test:latest"

	anvilImage = "ghcr.io/foundry-rs/foundry:latest"
	redisImage = "redis:7-alpine"

	// First anvil dev account. It is funded on every fresh anvil chain.
	backendKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	backendAddress = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"

	credentialContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	delegationManager  = "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512"
	smartAccount       = "0x1111111111111111111111111111111111111111"
	recipient          = "0x3333333333333333333333333333333333333333"
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		fmt.Fprintln(os.Stdout, "skipping issuer e2e tests in -short mode")
		os.Exit(0)
	}

	fmt.Fprintf(os.Stdout, "Building Issuer Service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Issuer Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/issuer/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// relaxedLimits keeps rapid test traffic under every policy.
var relaxedLimits = map[string]string{
	"RATELIMIT_DEFAULT_REQUESTS":  "1000",
	"RATELIMIT_ISSUANCE_REQUESTS": "1000",
	"RATELIMIT_AI_REQUESTS":       "1000",
	"RATELIMIT_VERIFY_REQUESTS":   "1000",
}

// setupIssuer starts anvil, Redis and the issuer on a private network and
// returns the issuer's base URL. extraEnv overrides the defaults.
func setupIssuer(t *testing.T, extraEnv map[string]string) string {
	t.Helper()
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nw.Remove(ctx) })

	startContainer(t, testcontainers.ContainerRequest{
		Image:          anvilImage,
		Cmd:            []string{"anvil --host 0.0.0.0 --chain-id 31337 --block-time 1"},
		Networks:       []string{nw.Name},
		NetworkAliases: map[string][]string{nw.Name: {"anvil"}},
		WaitingFor:     wait.ForLog("Listening on").WithStartupTimeout(60 * time.Second),
	})

	startContainer(t, testcontainers.ContainerRequest{
		Image:          redisImage,
		Networks:       []string{nw.Name},
		NetworkAliases: map[string][]string{nw.Name: {"redis"}},
		WaitingFor:     wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	})

	env := map[string]string{
		"ENV":                 "test",
		"LOG_LEVEL":           "info",
		"LOG_FORMAT":          "json",
		"CHAIN_RPC_URL":       "http://anvil:8545",
		"CHAIN_ID":            "31337",
		"BACKEND_PRIVATE_KEY": backendKey,
		"CREDENTIAL_CONTRACT": credentialContract,
		"DELEGATION_MANAGER":  delegationManager,
		"RATELIMIT_BACKEND":   "redis",
		"REDIS_ADDR":          "redis:6379",
		"ISSUER_PAYLOAD_KEY":  "e2e-payload-key-material",
	}
	maps.Copy(env, extraEnv)

	issuer := startContainer(t, testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		Networks:     []string{nw.Name},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	})

	mappedPort, err := issuer.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := issuer.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	return container
}

// newIssuerClient returns an SDK client for a freshly generated wallet.
func newIssuerClient(t *testing.T, baseURL string) *issuersdk.SDKClient {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return issuersdk.NewSDKClient(baseURL, key)
}

// createDelegation registers a delegation for the client's wallet with the
// given cap.
func createDelegation(t *testing.T, client *issuersdk.SDKClient, maxCalls int) *issuersdk.Delegation {
	t.Helper()
	d, err := client.CreateDelegation(context.Background(), issuersdk.CreateDelegationRequest{
		SmartAccountAddress: smartAccount,
		PermissionContext:   "0xdeadbeef",
		MaxCalls:            maxCalls,
	})
	require.NoError(t, err)
	require.Equal(t, client.Address(), d.IssuerAddress)
	require.Equal(t, backendAddress, d.BackendAddress)
	return d
}

// requireAPIError asserts err is an API error with the given status and code.
func requireAPIError(t *testing.T, err error, status int, code string) *issuersdk.APIError {
	t.Helper()
	require.Error(t, err)
	var apiErr *issuersdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Description)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}
