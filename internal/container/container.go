package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dmarkov/user-microservice/config"
	"github.com/dmarkov/user-microservice/internal/application"
	"github.com/dmarkov/user-microservice/internal/infrastructure/postgres"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	txScope     *postgres.TxScope
	redisClient *redis.Client
	esClient    *elasticsearch.Client
	producer    application.Producer
	notifier    application.Notifier
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }

func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }

func SetPGPool(p *pgxpool.Pool) { pgPool = p }
func GetPGPool() *pgxpool.Pool  { return pgPool }

func SetTxScope(s *postgres.TxScope) { txScope = s }
func GetTxScope() *postgres.TxScope  { return txScope }

func SetRedis(r *redis.Client) { redisClient = r }
func GetRedis() *redis.Client  { return redisClient }

func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }

func SetProducer(p application.Producer) { producer = p }
func GetProducer() application.Producer  { return producer }

func SetNotifier(n application.Notifier) { notifier = n }
func GetNotifier() application.Notifier  { return notifier }
