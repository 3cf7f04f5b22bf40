// halo-console is a development console for halo sessions: it joins a room,
// provisions the remote agent and renders the conversation flow (status,
// live transcript and reconstructed turns) in the terminal. Media playback
// is headless; embed the session package with a real transport engine for
// audible output.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	session "github.com/ansnik/halo-core/core"
	"github.com/ansnik/halo-core/core/audio/miniaudio"
	"github.com/ansnik/halo-core/core/control"
	"github.com/ansnik/halo-core/core/events"
	"github.com/ansnik/halo-core/core/provision"
)

func main() {
	provisionURL := flag.String("provision", "", "provisioning service base URL")
	controlURL := flag.String("control", "", "control channel websocket URL")
	controlToken := flag.String("token", "", "control channel access token")
	room := flag.String("room", "", "room id to join")
	user := flag.String("user", "", "user id to join as")
	mic := flag.Bool("mic", false, "capture microphone audio")
	flag.Parse()

	if *room == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "usage: halo-console -room <id> -user <id> [-provision <url>] [-control <url> -token <token>] [-mic]")
		os.Exit(2)
	}

	var opts []session.CoordinatorOption

	if *provisionURL != "" {
		opts = append(opts, session.WithProvisioner(provision.NewClient(*provisionURL)))
	}

	if *controlURL != "" {
		channel, err := control.Dial(context.Background(), *controlURL, *controlToken)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to open control channel:", err)
			os.Exit(1)
		}
		opts = append(opts, session.WithControlChannel(channel))
	}

	if *mic {
		capture, err := miniaudio.NewClient()
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to initialize microphone capture:", err)
			os.Exit(1)
		}
		opts = append(opts, session.WithMicrophoneCapture(capture))
	}

	coordinator := session.New(newConsoleEngine(), opts...)
	defer coordinator.Close()

	program := tea.NewProgram(newModel(coordinator, *room, *user), tea.WithAltScreen())

	unsubscribe := coordinator.OnEvent(func(event events.Event) {
		program.Send(sessionEventMsg{event: event})
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "console exited with error:", err)
		os.Exit(1)
	}
}
