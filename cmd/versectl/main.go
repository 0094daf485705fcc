// versectl is a command-line client for exercising the voice
// scripture service without a microphone pipeline.
//
// Usage:
//
//	versectl health
//	versectl parse --text "요한복음 3장 16절"
//	versectl lookup --book 요한복음 --chapter 3 --verse 16
//	versectl wake --audio clip.wav
//	versectl verse --session <id> --audio clip.wav
//	versectl identify --audio clip.wav
//	versectl enroll --label insuk --audio clip.wav
//	versectl reload
//	versectl tts --text "태초에 하나님이" --out reply.wav
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	addr := pflag.String("addr", "http://localhost:8000", "service base URL")
	text := pflag.String("text", "", "text input for parse/tts")
	audioPath := pflag.String("audio", "", "path to an audio clip")
	sessionID := pflag.String("session", "", "session ID for verse requests")
	book := pflag.String("book", "", "book name for lookup")
	chapter := pflag.Int("chapter", 0, "chapter for lookup")
	verseNum := pflag.Int("verse", 0, "verse for lookup")
	verseEnd := pflag.Int("verse-end", 0, "range end for lookup")
	label := pflag.String("label", "", "speaker label for enroll")
	out := pflag.String("out", "", "write response audio to this file")
	pflag.Parse()

	if pflag.NArg() < 1 {
		log.Fatal("usage: versectl <health|parse|lookup|wake|verse|identify|enroll|reload|tts> [flags]")
	}
	command := pflag.Arg(0)

	client := &http.Client{Timeout: 120 * time.Second}
	base := *addr + "/v1"

	var (
		resp *http.Response
		err  error
	)
	switch command {
	case "health":
		resp, err = client.Get(base + "/health")
	case "parse":
		requireFlag(*text, "--text")
		resp, err = client.Get(base + "/parse?text=" + url.QueryEscape(*text))
	case "lookup":
		requireFlag(*book, "--book")
		q := url.Values{}
		q.Set("book", *book)
		q.Set("chapter", strconv.Itoa(*chapter))
		q.Set("verse", strconv.Itoa(*verseNum))
		if *verseEnd > 0 {
			q.Set("verseEnd", strconv.Itoa(*verseEnd))
		}
		resp, err = client.Get(base + "/verse/lookup?" + q.Encode())
	case "wake":
		resp, err = postJSON(client, base+"/wake", map[string]any{
			"audio": readAudio(*audioPath),
		})
	case "verse":
		requireFlag(*sessionID, "--session")
		resp, err = postJSON(client, base+"/verse", map[string]any{
			"sessionId": *sessionID,
			"audio":     readAudio(*audioPath),
		})
	case "identify":
		resp, err = postJSON(client, base+"/identify", map[string]any{
			"audio": readAudio(*audioPath),
		})
	case "enroll":
		requireFlag(*label, "--label")
		resp, err = postJSON(client, base+"/speakers/samples", map[string]any{
			"label":   *label,
			"samples": [][]byte{readAudio(*audioPath)},
		})
	case "reload":
		resp, err = postJSON(client, base+"/speakers/reload", nil)
	case "tts":
		requireFlag(*text, "--text")
		resp, err = postJSON(client, base+"/tts", map[string]any{"text": *text})
	default:
		log.Fatalf("unknown command %q", command)
	}
	if err != nil {
		log.Fatalf("%s request failed: %v", command, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("reading response: %v", err)
	}
	if resp.StatusCode >= 300 {
		log.Fatalf("%s: status %d: %s", command, resp.StatusCode, body)
	}

	if *out != "" {
		writeAudio(*out, body)
		return
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(body))
	}
}

func postJSON(client *http.Client, u string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	return client.Post(u, "application/json", &buf)
}

func readAudio(path string) []byte {
	if path == "" {
		log.Fatal("--audio is required for this command")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}
	return data
}

// writeAudio extracts the base64 audio field from a JSON response and
// writes the decoded bytes to a file.
func writeAudio(path string, body []byte) {
	var resp struct {
		Audio []byte `json:"audio"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Audio) == 0 {
		log.Fatalf("response carries no audio: %s", body)
	}
	if err := os.WriteFile(path, resp.Audio, 0o644); err != nil {
		log.Fatalf("writing %s: %v", path, err)
	}
	log.Printf("wrote %d bytes to %s", len(resp.Audio), path)
}

func requireFlag(value, name string) {
	if value == "" {
		log.Fatalf("%s is required for this command", name)
	}
}
