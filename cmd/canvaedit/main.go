package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "canvaedit",
	Short: "Timeline clip editor with a sample-accurate audio engine",
	Long: `Canvaedit hosts a multi-track timeline of video, image and audio clips
and plays the audio lanes through a sample-accurate mixing engine.
The mixed monitor output streams to browsers over WebRTC or chunked MP3.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
