package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"flashpoint/internal/config"
	"flashpoint/internal/server"
	"flashpoint/internal/stats"
)

func main() {
	configPath := flag.String("config", "", "服务器配置文件 (YAML)")
	address := flag.String("addr", "", "服务器监听地址，覆盖配置文件")
	proto := flag.String("proto", "", "传输协议 tcp|kcp，覆盖配置文件")
	flag.Parse()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *address != "" {
		cfg.Addr = *address
	}
	if *proto != "" {
		cfg.Proto = *proto
	}

	scenario, err := config.LoadScenario(cfg.Scenario)
	if err != nil {
		log.Fatalf("加载场景失败: %v", err)
	}

	opts := server.Options{
		Addr:      cfg.Addr,
		Proto:     cfg.Proto,
		StepRate:  cfg.StepRate,
		StepBurst: cfg.StepBurst,
		Session: server.SessionOptions{
			Scenario: scenario,
			Policy:   cfg.Policy,
			AutoStep: cfg.AutoStep,
		},
	}

	if cfg.NATSURL != "" {
		pub, err := server.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Fatalf("NATS 初始化失败: %v", err)
		}
		opts.Session.Publisher = pub
	}
	if cfg.SQLitePath != "" {
		rec, err := stats.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("SQLite 初始化失败: %v", err)
		}
		opts.Session.Recorder = rec
	}

	gameServer := server.NewGameServer(opts)

	go func() {
		if err := gameServer.Start(); err != nil {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	log.Println("========================================")
	log.Println("  Flash Point 模拟服务器")
	log.Println("========================================")
	log.Printf("监听地址: %s (%s)", cfg.Addr, cfg.Proto)
	log.Printf("场景: %dx%d 消防员=%d POI=%d", scenario.Width, scenario.Height, scenario.Firefighters, scenario.POIs)
	log.Printf("自动推进: %v", cfg.AutoStep)
	log.Printf("单次最多推进: %d 步", server.MaxBatchSteps)
	log.Println("========================================")
	log.Println("按 Ctrl+C 停止服务器")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	gameServer.Shutdown()

	log.Println("服务器已关闭，再见！")
}
