package main

import (
	"flag"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"flashpoint/internal/client"
	"flashpoint/internal/client/viewer"
	"flashpoint/internal/config"
	"flashpoint/pkg/ai"
)

func main() {
	serverAddr := flag.String("server", "", "服务器地址，为空时在本地运行模拟")
	proto := flag.String("proto", "tcp", "传输协议 tcp|kcp")
	scenarioPath := flag.String("config", "", "场景配置文件 (YAML)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "本地模拟的随机种子")
	interval := flag.Duration("interval", 300*time.Millisecond, "自动推进间隔")
	scoreCarried := flag.Bool("score-carried", false, "本地模拟的角色评分计入已被携带的 POI")
	flag.Parse()

	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("加载场景失败: %v", err)
	}

	var source client.StateSource
	title := "Flash Point - local"
	if *serverAddr == "" {
		local, err := client.NewLocalSource(scenario, ai.Config{Rescuers: ai.DefaultConfig.Rescuers, ScoreCarriedPOIs: *scoreCarried}, *seed)
		if err != nil {
			log.Fatalf("创建模拟失败: %v", err)
		}
		source = local
	} else {
		nc := client.NewNetworkClient(*serverAddr, *proto)
		if err := nc.Connect(); err != nil {
			log.Fatalf("连接失败: %v", err)
		}
		defer nc.Close()

		remote := client.NewRemoteSource(nc, map[string]any{
			"width":            scenario.Width,
			"height":           scenario.Height,
			"num_firefighters": scenario.Firefighters,
			"initial_pois":     scenario.POIs,
		})
		if err := remote.Recreate(); err != nil {
			log.Fatalf("创建模拟失败: %v", err)
		}
		source = remote
		title = "Flash Point - " + *serverAddr
	}

	w, h := viewer.ScreenSize(scenario.Width, scenario.Height)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetTPS(viewer.FPS)

	if err := ebiten.RunGame(viewer.New(source, *interval)); err != nil {
		log.Fatal(err)
	}
}
