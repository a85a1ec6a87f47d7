package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxgate/internal/audio"
	"voxgate/internal/ipc"
	"voxgate/internal/sound"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: voxgate-ctl [flags] <command>

commands:
  talk            record from the mic and speak the answer
  switch <agent>  switch the active agent ("default" clears)
  reload          reload the daemon's config
  status          show the active agent
`)
	cli.PrintDefaults()
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	daemonURL := cli.StringP("url", "u", "http://localhost:8090", "Daemon base URL")
	logLevel := cli.StringP("log", "l", "warn", "Log level")
	cli.Usage = usage
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	godotenv.Load(*envFile)

	args := cli.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "talk":
		err = talk(*daemonURL)
	case "switch":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		err = control(ipc.Request{Cmd: "switch", Arg: args[1]})
	case "reload":
		err = control(ipc.Request{Cmd: "reload"})
	case "status":
		err = control(ipc.Request{Cmd: "status"})
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func control(req ipc.Request) error {
	reply, err := ipc.Send(req)
	if err != nil {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("%s", reply.Detail)
	}
	fmt.Println(reply.Detail)
	return nil
}

// talk records one utterance, sends it to the daemon, and plays whatever
// comes back. Other desktop audio is ducked while the answer plays.
func talk(daemonURL string) error {
	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer rec.Close()

	log.Info("Listening")
	pcm, err := rec.RecordAuto()
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	log.Info("Recorded", "samples", len(pcm))

	wav, err := audio.EncodeWAV(pcm)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 3 * time.Minute}
	resp, err := client.Post(daemonURL+"/voice", "audio/wav", bytes.NewReader(wav))
	if err != nil {
		return fmt.Errorf("post voice: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon: %s: %s", resp.Status, string(body))
	}

	ctx := context.Background()
	ducker := audio.NewDucker([]string{"voxgate-ctl"}, 20)
	if err := ducker.Duck(ctx, 0.3, 300*time.Millisecond); err != nil {
		log.Warn("Duck failed", "err", err)
	}
	defer func() {
		if err := ducker.Unduck(ctx, 300*time.Millisecond); err != nil {
			log.Warn("Unduck failed", "err", err)
		}
	}()

	return sound.Play(body, resp.Header.Get("Content-Type"))
}
