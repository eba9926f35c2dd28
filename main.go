package main

import (
	"context"
	"log"
	"net"
	"os"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	mongoutil "SLProject/data/database/mgo/mongoutil"
	"SLProject/global"
	"SLProject/logger"
	mid "SLProject/middleware"
	midsec "SLProject/middleware/security"
	"SLProject/module/friend"
	friendsvc "SLProject/module/friend/service"
	"SLProject/module/list"
	listsvc "SLProject/module/list/service"
	"SLProject/module/membership"
	"SLProject/module/user"
	usersvc "SLProject/module/user/service"
	"SLProject/service/journal"
	"SLProject/service/mgo"
	"SLProject/service/natsx"
	"SLProject/service/room"
	"SLProject/service/storage"
	redissrv "SLProject/service/storage/redis"
	"SLProject/store"
	jwtlib "SLProject/tools/security"
)

func main() {
	global.ConfigIds()
	cfg := global.Load()
	ctx := context.Background()

	st := openStore(ctx, cfg)

	// presence mirror; the gateway runs without it when redis is down
	var presence *storage.Presence
	if err := redissrv.Init(redissrv.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Warnf("redis unavailable, presence disabled: %v", err)
	} else {
		presence = storage.NewPresence(redissrv.Get())
	}

	reg := room.NewRegistry()

	var relays []room.Relay
	var natsClient *natsx.Client
	if cfg.RelayEnabled {
		nc, err := natsx.NewClient(natsx.Config{Servers: cfg.NatsServers, Name: cfg.GatewayNodeID})
		if err != nil {
			log.Fatalf("nats connect failed: %v", err)
		}
		natsClient = nc
		relay, err := room.NewNatsRelay(nc, cfg.GatewayNodeID)
		if err != nil {
			log.Fatalf("nats relay init failed: %v", err)
		}
		relays = append(relays, relay)
	}
	if cfg.JournalEnabled {
		j, err := journal.New(journal.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			log.Fatalf("journal init failed: %v", err)
		}
		relays = append(relays, j)
	}

	disp := room.NewDispatcher(reg, 8, 1024, relays...)
	if natsClient != nil {
		if err := room.ConsumeRelay(natsClient, cfg.GatewayNodeID, disp); err != nil {
			log.Fatalf("relay subscribe failed: %v", err)
		}
	}

	engine := membership.NewEngine(st, disp)
	gateway := room.NewGateway(st)
	wsServer := room.NewServer(cfg.GatewayNodeID, gateway, reg, disp, presence)

	jwtOpts := jwtlib.DefaultOptions(global.GetJwtSecret())
	authOpts := midsec.DefaultOptions(jwtOpts)
	mid.ConfigAuth(authOpts)

	var verifier usersvc.CredentialVerifier
	if ep := os.Getenv("SL_AUTH_ENDPOINT"); ep != "" {
		verifier = usersvc.NewHTTPVerifier(ep)
	} else {
		logger.Warn("SL_AUTH_ENDPOINT unset, using dev verifier")
		verifier = &usersvc.DevVerifier{Store: st}
	}

	userHandler := user.NewHandler(usersvc.NewUserService(st, verifier, jwtOpts))
	listHandler := list.NewHandler(engine, listsvc.NewListService(st))
	friendHandler := friend.NewHandler(engine, friendsvc.NewFriendService(st))

	go serveHealth(cfg.GrpcAddr)

	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	userHandler.Register(api)
	listHandler.Register(api)
	friendHandler.Register(api)

	r.GET("/ws", midsec.Middleware(authOpts), wsServer.HandleWS)

	logger.Infof("[HTTP] listening on %s node=%s store=%s", cfg.HTTPAddr, cfg.GatewayNodeID, cfg.StoreBackend)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}

func openStore(ctx context.Context, cfg *global.AppConfig) store.Store {
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPGStore(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres init failed: %v", err)
		}
		return pg
	case "memory":
		return store.NewMemStore()
	default:
		mgo.StartAsync(ctx, &mongoutil.Config{
			Uri:         cfg.MongoURI,
			Database:    cfg.MongoDB,
			MaxPoolSize: 20,
		})
		if err := mgo.WaitReady(ctx); err != nil {
			log.Fatalf("mongo not ready: %v", err)
		}
		return store.NewMongoStore(mgo.GetDB())
	}
}

func serveHealth(addr string) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("gRPC listen failed: %v", err)
	}
	gs := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	log.Printf("[gRPC] health listening on %s", addr)
	if err := gs.Serve(lis); err != nil {
		log.Fatalf("gRPC server failed: %v", err)
	}
}
