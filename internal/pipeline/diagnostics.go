package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"

	"github.com/daniela/profile-archiver/internal/snapshot"
)

// DiagnosticSink observes rendered snapshots for debugging. Sinks must not
// affect pipeline outcome; failures inside a sink are logged and swallowed.
type DiagnosticSink interface {
	Observe(profileURL string, snap snapshot.Snapshot)
}

// FileSink writes the rendered HTML and screenshot of each snapshot under a
// directory, one pair of files per profile URL.
type FileSink struct {
	Dir string
}

func (s *FileSink) Observe(profileURL string, snap snapshot.Snapshot) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		log.Printf("[diagnostics] cannot create %s: %v", s.Dir, err)
		return
	}
	sum := sha256.Sum256([]byte(profileURL))
	base := hex.EncodeToString(sum[:8])

	htmlPath := filepath.Join(s.Dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(snap.HTML()), 0o644); err != nil {
		log.Printf("[diagnostics] write %s: %v", htmlPath, err)
	}
	if shot := snap.Screenshot(); len(shot) > 0 {
		shotPath := filepath.Join(s.Dir, base+".png")
		if err := os.WriteFile(shotPath, shot, 0o644); err != nil {
			log.Printf("[diagnostics] write %s: %v", shotPath, err)
		}
	}
}
