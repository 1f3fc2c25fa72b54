// ghostbot 无界面客户端：连接房间，驱动一个绕圈运动的脚本刚体并记录其他玩家的幽灵位置
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/joho/godotenv"

	"marbleparty/client"
	"marbleparty/config"
	"marbleparty/ghost"
	"marbleparty/identity"
	"marbleparty/logging"
	"marbleparty/protocol"
)

const frame = 16 * time.Millisecond

func main() {
	var (
		configPath string
		name       string
		skin       int
		level      string
		orbit      float64
	)
	flag.StringVar(&configPath, "config", "", "path to marbleparty.yaml")
	flag.StringVar(&name, "name", "", "display name to announce")
	flag.IntVar(&skin, "skin", -1, "skin index")
	flag.StringVar(&level, "level", "levels/beginner/movement.mis", "level to request when hosting an empty room")
	flag.Float64Var(&orbit, "orbit", 2, "circle radius")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadClientConfig(configPath)
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log.Options()); err != nil {
		panic(err)
	}
	defer logging.Sync()

	store, err := identity.OpenFileStore(cfg.Client.PrefsFile)
	if err != nil {
		logging.Log.Fatalw("open prefs", "file", cfg.Client.PrefsFile, "error", err)
	}
	prefs := identity.NewPrefs(store)
	if name != "" {
		if _, err := prefs.SetName(name); err != nil {
			logging.Log.Warnw("save name", "error", err)
		}
	}
	if skin >= 0 {
		if err := prefs.SetSkinIndex(identity.WrapSkin(skin, len(identity.Skins))); err != nil {
			logging.Log.Warnw("save skin", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := client.NewSession(client.SessionConfigFrom(cfg.Client))
	go session.Run(ctx)

	b := &bot{
		cfg:          cfg.Client,
		defaultLevel: protocol.Level{Path: level},
		body:         newCirclingBody(mgl64.Vec3{}, orbit, 1.5),
	}
	b.facade = client.NewFacade(session, prefs, client.HookFuncs{
		OnLevel: func(lvl protocol.Level) { b.pending = &lvl },
		OnReady: b.ready,
		OnLocalSkin: func(i int) {
			logging.Log.Infow("local skin", "skin", identity.Skins[i])
		},
	}, cfg.Client.SendRate)

	b.run(ctx)
	logging.Log.Info("ghostbot stopped")
}

type bot struct {
	cfg          config.ClientSettings
	defaultLevel protocol.Level
	facade       *client.Facade
	body         *circlingBody

	pending *protocol.Level
	engine  *ghost.Engine
	scene   *nullScene
}

// ready 房间尚无关卡时由房主选择默认关卡
func (b *bot) ready() {
	if _, ok := b.facade.Level(); ok || !b.facade.IsHost() {
		return
	}
	if err := b.facade.RequestLevelChange(b.defaultLevel); err != nil {
		logging.Log.Warnw("level request", "error", err)
		return
	}
	lvl := b.defaultLevel
	b.pending = &lvl
}

// load 卸载当前关卡实例并为新关卡建立幽灵池
func (b *bot) load(ctx context.Context, lvl protocol.Level) {
	if b.engine != nil {
		b.facade.Detach(b.engine)
		b.engine.Dispose()
	}
	b.scene = &nullScene{}
	b.engine = ghost.NewEngine(ghost.Config{
		Capacity:     b.cfg.GhostCapacity,
		SendInterval: b.cfg.SendInterval(),
	}, ghost.Collaborators{
		Scene:  b.scene,
		Loader: pathLoader{},
		Body:   b.body,
		Size:   levelSize{level: lvl},
	})
	if err := b.engine.InitGhostMarbles(ctx); err != nil {
		logging.Log.Errorw("ghost pool", "level", lvl.Path, "error", err)
		b.engine = nil
		return
	}
	b.facade.Attach(b.engine)
	logging.Log.Infow("level loaded", "level", lvl.Path, "modification", lvl.Modification)
}

func (b *bot) run(ctx context.Context) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	report := time.NewTicker(2 * time.Second)
	defer report.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			if b.engine != nil {
				b.engine.Dispose()
			}
			return
		case <-report.C:
			for _, p := range b.facade.PlayerList() {
				logging.Log.Infow("player", "name", p.Name, "host", p.Host, "online", p.Online)
			}
			if b.scene != nil {
				b.scene.report()
			}
		case now := <-ticker.C:
			b.facade.Pump()
			if b.pending != nil {
				lvl := *b.pending
				b.pending = nil
				b.load(ctx, lvl)
			}
			b.body.Step(now.Sub(last))
			last = now
			if b.engine != nil {
				b.facade.PublishPose(now, b.body.Pose())
				b.engine.Update(now)
			}
		}
	}
}
