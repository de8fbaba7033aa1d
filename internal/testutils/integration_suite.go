package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"promptforge/apps/backend/internal/config"
)

type IntegrationSuite struct {
	T     *testing.T
	DB    *sql.DB
	Redis *goredis.Client
	NSQ   *nsq.Producer

	// SkipNSQ leaves the NSQ container out for suites that only need
	// Postgres and Redis.
	SkipNSQ bool

	dbConnStr string
	redisAddr string
	nsqdHost  string

	pgContainer    *postgres.PostgresContainer
	redisContainer testcontainers.Container
	nsqContainer   testcontainers.Container
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	// 1. Postgres
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("promptforge_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)
	s.dbConnStr = connStr

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	// Run Migrations
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(b)
	migrationPath := fmt.Sprintf("file://%s/../../migrations", basepath)

	m, err := migrate.New(migrationPath, connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())

	// 2. Redis
	redisReq := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: redisReq,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.redisContainer = redisC

	redisHost, err := redisC.Host(ctx)
	require.NoError(s.T, err)
	redisPort, err := redisC.MappedPort(ctx, "6379")
	require.NoError(s.T, err)
	s.redisAddr = fmt.Sprintf("%s:%s", redisHost, redisPort.Port())
	s.Redis = goredis.NewClient(&goredis.Options{Addr: s.redisAddr})

	// 3. NSQ
	if !s.SkipNSQ {
		nsqReq := testcontainers.ContainerRequest{
			Image:        "nsqio/nsq:v1.3.0",
			ExposedPorts: []string{"4150/tcp", "4151/tcp"},
			Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
			WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
		}
		nsqC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: nsqReq,
			Started:          true,
		})
		require.NoError(s.T, err)
		s.nsqContainer = nsqC

		nsqHost, err := nsqC.Host(ctx)
		require.NoError(s.T, err)
		nsqPort, err := nsqC.MappedPort(ctx, "4150")
		require.NoError(s.T, err)
		s.nsqdHost = fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port())

		s.NSQ, err = nsq.NewProducer(s.nsqdHost, nsq.NewConfig())
		require.NoError(s.T, err)
	}
}

// GetAppConfig builds a Config pointing at the suite's containers.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	u, err := url.Parse(s.dbConnStr)
	require.NoError(s.T, err)
	pass, _ := u.User.Password()

	cfg := &config.Config{
		DBHost:    u.Hostname(),
		DBUser:    u.User.Username(),
		DBPass:    pass,
		DBName:    "promptforge_test",
		RedisAddr: s.redisAddr,
		EnableNSQ: false,

		EnableAPI:    true,
		EnableWorker: false,

		ServerPort:    8081,
		MigrationPath: "file://migrations",

		JobLeaseSeconds:      300,
		JobMaxAttempts:       5,
		RetryBackoffSeconds:  60,
		RetryBackoffStrategy: "constant",
		WorkerIntervalMS:     200,

		GenerateCost:           1,
		GuestQuota:             3,
		GuestWindowSeconds:     60,
		FreeQuota:              30,
		FreeWindowSeconds:      60,
		ProQuota:               120,
		ProWindowSeconds:       60,
		TemplateCacheTTLSecond: 300,

		BootstrapRetryAttempts:     5,
		BootstrapRetryDelaySeconds: 1,
	}
	fmt.Sscanf(u.Port(), "%d", &cfg.DBPort)
	return cfg
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.DB != nil {
		s.DB.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
	if s.redisContainer != nil {
		s.redisContainer.Terminate(ctx)
	}
	if s.nsqContainer != nil {
		s.nsqContainer.Terminate(ctx)
	}
}
