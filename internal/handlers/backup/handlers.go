package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"debtplan/internal/config"
	apphttp "debtplan/internal/http"
	"debtplan/internal/models"
	"debtplan/internal/services/intake"
	"debtplan/internal/services/storage"
	"debtplan/internal/version"
)

// plotlyURL is fetched once and cached under data/cache
const plotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

var (
	cfg   *config.Config
	store *storage.Storage
	repo  intake.Repository
)

// Initialize sets up the backup package with required dependencies
func Initialize(c *config.Config, s *storage.Storage, r intake.Repository) {
	cfg = c
	store = s
	repo = r
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
	}
	if store != nil {
		body["encrypted"] = store.IsEncrypted()
		body["unlocked"] = store.IsUnlocked()
	}
	apphttp.WriteJSON(w, http.StatusOK, body)
}

// manifest describes a backup archive
type manifest struct {
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	Driver      string    `json:"driver"`
	Submissions int       `json:"submissions"`
}

// buildArchive zips every submission as intake/<id>.json. Exporting through
// the repository gives the same archive for every driver and reads SQL
// stores through the database, never from the live database file.
func buildArchive(ctx context.Context) ([]byte, int, error) {
	subs, err := repo.List(ctx, 0)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i := range subs {
		data, err := json.MarshalIndent(&subs[i], "", "  ")
		if err != nil {
			return nil, 0, fmt.Errorf("encode %s: %w", subs[i].ID, err)
		}
		f, err := zw.Create(path.Join("intake", subs[i].ID+".json"))
		if err != nil {
			return nil, 0, err
		}
		if _, err := f.Write(data); err != nil {
			return nil, 0, err
		}
	}

	m := manifest{
		Version:     version.Version,
		CreatedAt:   time.Now().UTC(),
		Driver:      cfg.Intake.Driver,
		Submissions: len(subs),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, 0, err
	}
	f, err := zw.Create("manifest.json")
	if err != nil {
		return nil, 0, err
	}
	if _, err := f.Write(data); err != nil {
		return nil, 0, err
	}

	if err := zw.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(subs), nil
}

// HandleBackup sends a zip of every intake submission. Entries are written
// decrypted so the archive restores on any machine and into any driver.
func HandleBackup(w http.ResponseWriter, r *http.Request) {
	data, n, err := buildArchive(r.Context())
	if err != nil {
		log.Printf("Error creating backup: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrLocked) {
			status = http.StatusLocked
		}
		http.Error(w, "Could not create backup: "+err.Error(), status)
		return
	}
	log.Printf("Backup created: %d submissions", n)

	filename := fmt.Sprintf("debtplan_backup_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(data)
}

// HandleRestore accepts a backup zip and restores the intake submissions in it
func HandleRestore(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		http.Error(w, "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error reading file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		http.Error(w, "Only ZIP backup files are allowed", http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	n, err := restoreArchive(r.Context(), content)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrLocked) {
			status = http.StatusLocked
		}
		http.Error(w, err.Error(), status)
		return
	}

	log.Printf("Restore complete: %d submissions restored", n)
	fmt.Fprintf(w, "Restored %d submissions", n)
}

// restoreArchive saves every intake/<uuid>.json entry through the repository,
// so entries land in whichever driver is configured and are re-encrypted when
// the file driver has encryption on
func restoreArchive(ctx context.Context, content []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("invalid ZIP file")
	}

	restored := 0
	for _, zf := range zr.File {
		dir, name := path.Split(zf.Name)
		id := strings.TrimSuffix(name, ".json")
		if dir != "intake/" || !strings.HasSuffix(name, ".json") {
			continue
		}
		// the id becomes a file name, so it must be a plain UUID
		if _, err := uuid.Parse(id); err != nil {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			log.Printf("Error opening zip entry %s: %v", zf.Name, err)
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Printf("Error reading zip entry %s: %v", zf.Name, err)
			continue
		}

		var s models.Submission
		if err := json.Unmarshal(data, &s); err != nil || s.ID != id {
			log.Printf("Skipping %s: not a submission", zf.Name)
			continue
		}

		if err := intake.Validate(&s); err != nil {
			log.Printf("Skipping %s: %v", zf.Name, err)
			continue
		}
		if err := repo.Save(ctx, &s); err != nil {
			return restored, fmt.Errorf("write %s: %w", zf.Name, err)
		}
		restored++
	}

	if restored == 0 {
		return 0, fmt.Errorf("no intake submissions found in backup")
	}
	return restored, nil
}

// HandleUnlock unlocks an encrypted data directory with the posted password
func HandleUnlock(w http.ResponseWriter, r *http.Request) {
	if err := store.Unlock(r.FormValue("password")); err != nil {
		log.Printf("Unlock failed: %v", err)
		apphttp.WriteJSONError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]bool{"unlocked": true})
}

// HandleLock forgets the key until the next unlock
func HandleLock(w http.ResponseWriter, r *http.Request) {
	store.Lock()
	apphttp.WriteJSON(w, http.StatusOK, map[string]bool{"unlocked": store.IsUnlocked()})
}

func HandlePlotly(w http.ResponseWriter, r *http.Request) {
	cachePath := filepath.Join(cfg.DataDirectory, "cache", "plotly.min.js")

	if data, err := os.ReadFile(cachePath); err == nil {
		writeScript(w, data)
		return
	}

	log.Println("Fetching plotly.min.js from CDN...")
	resp, err := http.Get(plotlyURL)
	if err != nil {
		http.Error(w, "Failed to fetch plotly: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, "CDN returned status: "+resp.Status, http.StatusBadGateway)
		return
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		http.Error(w, "Failed to read plotly response: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		log.Printf("Warning: could not create cache directory: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		log.Printf("Warning: could not cache plotly.min.js: %v", err)
	}

	writeScript(w, data)
}

func writeScript(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Write(data)
}
