package global

type AppConfig struct {
	GatewayNodeID string // id this node announces in presence/relay
	HTTPAddr      string // gin listen address
	GrpcAddr      string // health service listen address

	StoreBackend string // mongo | postgres | memory
	MongoURI     string
	MongoDB      string
	PostgresDSN  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsServers  []string
	KafkaBrokers []string
	KafkaTopic   string

	RelayEnabled   bool // NATS cross-gateway relay
	JournalEnabled bool // Kafka activity journal
}
