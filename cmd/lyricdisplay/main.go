package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/KayLAN-Smith/lyric-display-esp32/internal/app"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/config"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/link"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/lyrics"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/spectrum"
	"github.com/KayLAN-Smith/lyric-display-esp32/internal/store"
	"github.com/KayLAN-Smith/lyric-display-esp32/pkg/logger"
)

// Global flags
var (
	configPath string
	dbPath     string
)

func init() {
	// Global flags that can be used with any command
	flag.StringVar(&configPath, "config", getEnvOrDefault("LYRICDISPLAY_CONFIG", ""), "Path to the JSON config file")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("LYRICDISPLAY_DB_PATH", ""), "Path to the track library database")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig() *config.Config {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			logger.Fatalf("Cannot resolve config path: %v", err)
		}
	}
	return config.Load(path)
}

func openStore() *store.Store {
	path := dbPath
	if path == "" {
		var err error
		path, err = config.DBPath()
		if err != nil {
			logger.Fatalf("Cannot resolve database path: %v", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		fmt.Printf("❌ Failed to open track library: %v\n", err)
		logger.Fatalf("Store open failed: %v", err)
	}
	return st
}

func main() {
	log := logger.GetLogger()

	printBanner()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	log.Infof("Executing command: %s", command)

	switch command {
	case "ports":
		handlePorts()
	case "add":
		handleAdd()
	case "list":
		handleList()
	case "delete":
		handleDelete()
	case "offset":
		handleOffset()
	case "play":
		handlePlay()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 _               _      ____  _           _
| |   _   _ _ __(_) ___|  _ \(_)___ _ __ | | __ _ _   _
| |  | | | | '__| |/ __| | | | / __| '_ \| |/ _' | | | |
| |__| |_| | |  | | (__| |_| | \__ \ |_) | | (_| | |_| |
|_____\__, |_|  |_|\___|____/|_|___/ .__/|_|\__,_|\__, |
      |___/                        |_|            |___/

        ESP32 OLED Lyric Display Controller
`
	fmt.Println(banner)
}

func handlePorts() {
	log := logger.GetLogger()

	ports, err := link.ListPorts()
	if err != nil {
		fmt.Printf("❌ Failed to enumerate serial ports: %v\n", err)
		log.Errorf("Port enumeration failed: %v", err)
		os.Exit(1)
	}
	if len(ports) == 0 {
		fmt.Println("📭 No serial ports found")
		return
	}

	fmt.Printf("🔌 Found %d serial port(s):\n\n", len(ports))
	for i, p := range ports {
		fmt.Printf("%d. %s\n", i+1, p)
	}
}

func handleAdd() {
	log := logger.GetLogger()

	args := os.Args[2:]
	var audioPath string
	var flagArgs []string
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && audioPath == "" {
			audioPath = arg
		} else {
			flagArgs = append(flagArgs, args[i:]...)
			break
		}
	}

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	srtPath := addCmd.String("srt", "", "Path to the SRT/LRC lyric file")
	title := addCmd.String("title", "", "Track title (defaults to the file name)")
	artist := addCmd.String("artist", "", "Artist name")
	offset := addCmd.Int("offset", 0, "Initial lyric offset in milliseconds")
	addCmd.Parse(flagArgs)

	if audioPath == "" {
		fmt.Println("Error: audio file path required")
		fmt.Println("Usage: lyricdisplay add <audio_file> --srt <lyrics.srt> [--title <title>] [--artist <artist>] [--offset <ms>]")
		os.Exit(1)
	}
	if _, err := os.Stat(audioPath); err != nil {
		fmt.Printf("❌ Cannot read audio file: %v\n", err)
		os.Exit(1)
	}

	if *title == "" {
		base := filepath.Base(audioPath)
		*title = base[:len(base)-len(filepath.Ext(base))]
	}

	if *srtPath != "" {
		lines, err := lyrics.ParseFile(*srtPath)
		if err != nil {
			fmt.Printf("❌ Cannot parse lyric file: %v\n", err)
			log.Errorf("Lyric parse failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("📝 Parsed %d lyric lines\n", len(lines))
	}

	fmt.Println("🎵 Probing audio duration...")
	durationMs := probeDuration(audioPath)

	st := openStore()
	defer st.Close()

	id, err := st.AddTrack(*title, *artist, audioPath, *srtPath, durationMs, *offset)
	if err != nil {
		fmt.Printf("❌ Failed to add track: %v\n", err)
		log.Errorf("AddTrack failed: %v", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Added track to library!")
	fmt.Printf("   ID:     %s\n", id)
	fmt.Printf("   Title:  %s\n", *title)
	if *artist != "" {
		fmt.Printf("   Artist: %s\n", *artist)
	}
	if durationMs > 0 {
		fmt.Printf("   Length: %s\n", formatDuration(durationMs))
	}
	log.Infof("Added track %s ('%s')", id, *title)
}

// probeDuration converts the file to WAV and counts samples. Returns 0
// when ffmpeg is missing; the duration is then learned during playback.
func probeDuration(audioPath string) int {
	log := logger.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	wavPath, err := spectrum.ConvertToMonoWAV(ctx, audioPath, os.TempDir(), spectrum.SampleRate)
	if err != nil {
		log.Warnf("Duration probe failed: %v", err)
		return 0
	}
	defer os.Remove(wavPath)

	samples, rate, err := spectrum.ReadWAVAsFloat64(wavPath)
	if err != nil || rate == 0 {
		log.Warnf("Duration probe decode failed: %v", err)
		return 0
	}
	return len(samples) * 1000 / rate
}

func formatDuration(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func handleList() {
	log := logger.GetLogger()

	st := openStore()
	defer st.Close()

	tracks, err := st.ListTracks()
	if err != nil {
		fmt.Printf("❌ Failed to list tracks: %v\n", err)
		log.Errorf("ListTracks failed: %v", err)
		os.Exit(1)
	}
	if len(tracks) == 0 {
		fmt.Println("📭 No tracks in library")
		return
	}

	fmt.Printf("📚 Found %d track(s):\n\n", len(tracks))
	for i, track := range tracks {
		name := track.Title
		if track.Artist != "" {
			name = fmt.Sprintf("%s - %s", track.Artist, track.Title)
		}
		fmt.Printf("%d. %s (ID: %s)\n", i+1, name, track.ID)
		if track.DurationMs > 0 {
			fmt.Printf("   Length: %s\n", formatDuration(track.DurationMs))
		}
		if track.LyricOffsetMs != 0 {
			fmt.Printf("   Offset: %+d ms\n", track.LyricOffsetMs)
		}
		fmt.Printf("   Added:  %s\n", humanize.Time(track.CreatedAt))
		fmt.Println()
	}
	log.Infof("Listed %d tracks", len(tracks))
}

func handleDelete() {
	log := logger.GetLogger()

	if len(os.Args) < 3 {
		fmt.Println("Usage: lyricdisplay delete <track_id>")
		os.Exit(1)
	}
	trackID := os.Args[2]

	st := openStore()
	defer st.Close()

	track, err := st.GetTrack(trackID)
	if err != nil {
		fmt.Printf("❌ Track not found: %s\n", trackID)
		log.Warnf("Track %s not found: %v", trackID, err)
		os.Exit(1)
	}
	if err := st.DeleteTrack(trackID); err != nil {
		fmt.Printf("❌ Failed to delete track: %v\n", err)
		log.Errorf("DeleteTrack failed: %v", err)
		os.Exit(1)
	}

	fmt.Println("✅ Deleted track:")
	fmt.Printf("   Title: %s\n", track.Title)
	log.Infof("Deleted track %s ('%s')", track.ID, track.Title)
}

func handleOffset() {
	log := logger.GetLogger()

	if len(os.Args) < 4 {
		fmt.Println("Usage: lyricdisplay offset <track_id> <milliseconds>")
		os.Exit(1)
	}
	trackID := os.Args[2]
	offsetMs, err := strconv.Atoi(os.Args[3])
	if err != nil {
		fmt.Printf("❌ Invalid offset: %v\n", err)
		os.Exit(1)
	}

	st := openStore()
	defer st.Close()

	if err := st.SetTrackOffset(trackID, offsetMs); err != nil {
		fmt.Printf("❌ Failed to set offset: %v\n", err)
		log.Errorf("SetTrackOffset failed: %v", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Lyric offset for %s set to %+d ms\n", trackID, offsetMs)
	log.Infof("Offset for %s set to %d ms", trackID, offsetMs)
}

func handlePlay() {
	log := logger.GetLogger()

	args := os.Args[2:]
	var trackID string
	var flagArgs []string
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && trackID == "" {
			trackID = arg
		} else {
			flagArgs = append(flagArgs, args[i:]...)
			break
		}
	}

	playCmd := flag.NewFlagSet("play", flag.ExitOnError)
	port := playCmd.String("port", "", "Serial port of the display (default: configured port)")
	preview := playCmd.Bool("preview", false, "Render the OLED frame in the terminal")
	playCmd.Parse(flagArgs)

	if trackID == "" {
		fmt.Println("Usage: lyricdisplay play <track_id> [--port <port>] [--preview]")
		os.Exit(1)
	}

	cfg := loadConfig()
	st := openStore()
	defer st.Close()

	track, err := st.GetTrack(trackID)
	if err != nil {
		fmt.Printf("❌ Track not found: %s\n", trackID)
		log.Warnf("Track %s not found: %v", trackID, err)
		os.Exit(1)
	}

	a := app.New(cfg, st, *preview)
	defer a.Close()

	portName := *port
	if portName == "" {
		portName = cfg.ComPort
	}
	if portName != "" {
		if err := a.Connect(portName); err != nil {
			fmt.Printf("⚠️  Display not reachable: %v\n", err)
			log.Warnf("Link open failed, playing without device: %v", err)
		} else {
			fmt.Printf("🔗 Link open on %s, waiting for the display to answer\n", portName)
		}
	} else {
		fmt.Println("⚠️  No serial port configured, playing with local preview only")
	}

	if err := a.SetQueue([]store.Track{*track}, 0); err != nil {
		fmt.Printf("❌ Cannot start playback: %v\n", err)
		log.Errorf("SetQueue failed: %v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil && err != context.Canceled {
		log.Errorf("Event loop ended with error: %v", err)
		os.Exit(1)
	}
	fmt.Println("\n👋 Playback finished")
}

func printUsage() {
	fmt.Println("LyricDisplay - ESP32 OLED Lyric Display Controller")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --config <path>    Path to the JSON config file (env: LYRICDISPLAY_CONFIG)")
	fmt.Println("  --db <path>        Path to the track library database (env: LYRICDISPLAY_DB_PATH)")
	fmt.Println("\nUsage:")
	fmt.Println("  lyricdisplay ports")
	fmt.Println("  lyricdisplay add <audio_file> --srt <lyrics.srt> [--title <title>] [--artist <artist>] [--offset <ms>]")
	fmt.Println("  lyricdisplay list")
	fmt.Println("  lyricdisplay delete <track_id>")
	fmt.Println("  lyricdisplay offset <track_id> <milliseconds>")
	fmt.Println("  lyricdisplay play <track_id> [--port <port>] [--preview]")
	fmt.Println("\nExamples:")
	fmt.Println("  # List connected serial ports")
	fmt.Println("  lyricdisplay ports")
	fmt.Println()
	fmt.Println("  # Import a song with its subtitles")
	fmt.Println("  lyricdisplay add song.mp3 --srt song.srt --title \"Song\" --artist \"Artist\"")
	fmt.Println()
	fmt.Println("  # Play it on the display connected to /dev/ttyUSB0")
	fmt.Println("  lyricdisplay play <track_id> --port /dev/ttyUSB0 --preview")
}
