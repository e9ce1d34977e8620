package media

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/strauser85/snap-sold-sub000/types"
)

// Assets holds everything downloaded and validated before a session may
// enter recording: local image paths, the voiceover file, and its measured
// duration. The tick loop never touches the network.
type Assets struct {
	Dir        string // session-scoped temp directory holding the assets
	ImagePaths []string
	AudioPath  string
	AudioSecs  float64
}

// Cleanup removes every downloaded asset.
func (a *Assets) Cleanup() {
	if a.Dir != "" {
		os.RemoveAll(a.Dir)
	}
}

// Prepare downloads and validates all assets for one session. Broken images
// are skipped with a log line; zero decodable images is an InputError. The
// audio duration is probed from the file itself, not trusted from the
// request.
func Prepare(ctx context.Context, id string, imageURLs []string, audioURL string) (*Assets, error) {
	dir, err := os.MkdirTemp("", "snapsold_"+id+"_")
	if err != nil {
		return nil, fmt.Errorf("failed to create asset dir: %w", err)
	}

	a := &Assets{Dir: dir}
	ok := false
	defer func() {
		if !ok {
			a.Cleanup()
		}
	}()

	a.ImagePaths = fetchImages(ctx, dir, imageURLs)
	if len(a.ImagePaths) == 0 {
		return nil, types.NewInputError("none of %d images could be loaded", len(imageURLs))
	}

	a.AudioPath = filepath.Join(dir, "voiceover.mp3")
	if err := downloadFile(ctx, audioURL, a.AudioPath); err != nil {
		return nil, &types.DeviceError{Op: "audio download", Err: err}
	}

	secs, err := ProbeDuration(a.AudioPath)
	if err != nil {
		return nil, &types.DeviceError{Op: "audio probe", Err: err}
	}
	a.AudioSecs = secs

	ok = true
	return a, nil
}

// DownloadWorkers is the number of concurrent image downloads per session.
const DownloadWorkers = 5

// fetchImages downloads listing photos through a small worker pool. Broken
// or undecodable images leave a nil slot so order is preserved.
func fetchImages(ctx context.Context, dir string, imageURLs []string) []string {
	results := make([]string, len(imageURLs))
	jobChan := make(chan int, len(imageURLs))

	var wg sync.WaitGroup
	for w := 0; w < DownloadWorkers; w++ {
		go func() {
			for i := range jobChan {
				url := imageURLs[i]
				path := filepath.Join(dir, fmt.Sprintf("img_%03d%s", i, imageExt(url)))
				if err := downloadFile(ctx, url, path); err != nil {
					log.Printf("skipping image %s: %v", url, err)
				} else if err := validateImage(path); err != nil {
					log.Printf("skipping undecodable image %s: %v", url, err)
					os.Remove(path)
				} else {
					results[i] = path
				}
				wg.Done()
			}
		}()
	}

	for i := range imageURLs {
		wg.Add(1)
		jobChan <- i
	}
	wg.Wait()
	close(jobChan)

	var paths []string
	for _, p := range results {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// ProbeDuration reads a media file's duration via ffprobe.
func ProbeDuration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse probe output: %w", err)
	}

	secs, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", probe.Format.Duration, err)
	}
	return secs, nil
}

func downloadFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// validateImage confirms the file decodes as a raster image.
func validateImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _, err = image.DecodeConfig(f)
	return err
}

func imageExt(url string) string {
	ext := filepath.Ext(url)
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return ext
	}
	return ".jpg"
}
