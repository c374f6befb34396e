// Command register installs the bot's slash commands as Discord global
// application commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/transport/discord"
	logx "remindbot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "optional config yaml/json; DISCORD_APP_ID and DISCORD_TOKEN override it")
	flag.Parse()

	log := logx.NewConsole("INFO").With(logx.String("comp", "register"))

	cfg := &config.Config{}
	if cfgPath != "" {
		c, err := config.NewManager(cfgPath).Parse()
		if err != nil {
			log.Error("read config", logx.Err(err))
			os.Exit(1)
		}
		cfg = c
	} else {
		config.ApplyEnv(cfg, os.LookupEnv)
	}

	appID := strings.TrimSpace(cfg.Discord.AppID)
	token := strings.TrimSpace(cfg.Discord.Token)
	if appID == "" || token == "" {
		fmt.Fprintln(os.Stderr, "discord app id and token are required (DISCORD_APP_ID, DISCORD_TOKEN)")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmds := discord.Commands()
	if err := discord.NewClient(token).InstallGlobalCommands(ctx, appID, cmds); err != nil {
		log.Error("install commands", logx.Err(err))
		os.Exit(1)
	}
	for _, c := range cmds {
		log.Info("command installed", logx.String("name", c.Name))
	}
}
