package utils

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// SplitProxyCredentials moves user info embedded in a proxy URL into the
// username/password fields unless those were given explicitly.
func SplitProxyCredentials(cfg *HTTPClientConfig) {
	if cfg.ProxyURL == "" || cfg.ProxyUsername != "" {
		return
	}
	parsedProxy, err := url.Parse(cfg.ProxyURL)
	if err != nil || parsedProxy.User == nil {
		return
	}
	cfg.ProxyUsername = parsedProxy.User.Username()
	if password, set := parsedProxy.User.Password(); set {
		cfg.ProxyPassword = password
	}
	parsedProxy.User = nil
	cfg.ProxyURL = parsedProxy.String()
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// ReadURLList loads a batch file. Files ending in .yaml or .yml hold a list of
// entries; anything else is read as one URL per non-empty line.
func ReadURLList(filePath string) ([]BatchEntry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, NewConfigError("batch file", err)
	}
	var entries []BatchEntry
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, NewConfigError("batch file", fmt.Errorf("error parsing YAML file: %w", err))
		}
		for i, entry := range entries {
			if strings.TrimSpace(entry.URL) == "" {
				return nil, NewConfigError("batch file", fmt.Errorf("missing link for entry %d", i+1))
			}
			entries[i].URL = strings.TrimSpace(entry.URL)
		}
	default:
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			entries = append(entries, BatchEntry{URL: line})
		}
		if err := scanner.Err(); err != nil {
			return nil, NewConfigError("batch file", err)
		}
	}
	log.Debug().Str("op", "utils/batch").Int("count", len(entries)).Msg("Entries loaded from batch file")
	return entries, nil
}

// CleanParts removes leftover part files from an interrupted run in dir.
func CleanParts(dir string) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), PartSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, file.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

var clipboardCommands = map[string][][]string{
	"darwin":  {{"pbpaste"}},
	"windows": {{"powershell", "-NoProfile", "-Command", "Get-Clipboard"}},
	"linux":   {{"wl-paste", "--no-newline"}, {"xclip", "-selection", "clipboard", "-o"}, {"xsel", "--clipboard", "--output"}},
}

// ReadClipboard returns the trimmed text content of the system clipboard.
func ReadClipboard() (string, error) {
	candidates, ok := clipboardCommands[runtime.GOOS]
	if !ok {
		candidates = clipboardCommands["linux"]
	}
	var lastErr error
	for _, args := range candidates {
		if _, err := exec.LookPath(args[0]); err != nil {
			lastErr = err
			continue
		}
		out, err := exec.Command(args[0], args[1:]...).Output()
		if err != nil {
			lastErr = err
			continue
		}
		text := strings.TrimSpace(string(out))
		if text == "" {
			return "", errors.New("clipboard is empty")
		}
		return text, nil
	}
	return "", fmt.Errorf("no clipboard tool available: %w", lastErr)
}
