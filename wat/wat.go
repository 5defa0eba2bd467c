/*
   Link extraction from WAT (WARC metadata) files into edge dumps.

   Both ends of every edge are written in normalised form: parsed,
   re-serialised without fragment, with the dump delimiters percent-encoded
   (see NormalizeURL). Edges are matched to vertices by exact URL, so the
   vertex source fed to the rank job must list its URLs in the same form.
*/
package wat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/Ahmed-Sermani/webrank/graph/store/dump"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// maxRecordSize bounds a single WAT JSON line.
const maxRecordSize = 64 << 20

// Links to files that cannot contain html content are not graph edges.
var exclusionRegex = regexp.MustCompile(`(?i)\.(?:jpg|jpeg|png|gif|ico|css|js)$`)

type watRecord struct {
	Envelope struct {
		Header struct {
			TargetURI string `json:"WARC-Target-URI"`
			RecordID  string `json:"WARC-Record-ID"`
		} `json:"WARC-Header-Metadata"`
		Payload struct {
			HTTPResponse struct {
				HTML struct {
					Links []watLink `json:"Links"`
				} `json:"HTML-Metadata"`
			} `json:"HTTP-Response-Metadata"`
		} `json:"Payload-Metadata"`
	} `json:"Envelope"`
}

type watLink struct {
	URL  string `json:"url"`
	Path string `json:"path"`
	Text string `json:"text"`
}

// Stats summarises an extraction pass.
type Stats struct {
	Records   uint64
	Links     uint64
	Skipped   uint64
	Malformed uint64
}

// Config configures an Extractor.
type Config struct {
	// KeepAssets keeps links to images, scripts and stylesheets.
	KeepAssets bool

	Logger *logrus.Entry
}

// Extractor turns WAT records into "src,dst" edge dump lines: one line per
// outgoing link of every record that carries a target URI.
type Extractor struct {
	cfg Config
}

func NewExtractor(cfg Config) *Extractor {
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return &Extractor{cfg: cfg}
}

// ExtractFile reads the WAT file at in and writes its edges to out. Both
// paths may carry a .gz or .zst suffix.
func (e *Extractor) ExtractFile(ctx context.Context, in, out string) (Stats, error) {
	r, err := dump.OpenFile(in)
	if err != nil {
		return Stats{}, xerrors.Errorf("open WAT file: %w", err)
	}
	defer func() { _ = r.Close() }()

	w, err := dump.CreateEdgeFile(out)
	if err != nil {
		return Stats{}, err
	}
	stats, err := e.Extract(ctx, r, w)
	if cErr := w.Close(); err == nil {
		err = cErr
	}
	return stats, err
}

// Extract reads WAT lines from r. Only lines holding a JSON object are
// considered; unparsable ones are skipped with a warning.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, w *dump.EdgeWriter) (Stats, error) {
	var (
		stats Stats
		line  uint64
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRecordSize)
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var rec watRecord
		if err := json.Unmarshal(bytes.TrimSpace(raw), &rec); err != nil {
			stats.Malformed++
			e.cfg.Logger.WithFields(logrus.Fields{
				"line":  line,
				"error": err,
			}).Warn("error while parsing the json, skipping line")
			continue
		}

		src := rec.Envelope.Header.TargetURI
		if src == "" {
			continue
		}
		stats.Records++
		base, err := url.Parse(src)
		if err != nil {
			stats.Malformed++
			e.cfg.Logger.WithFields(logrus.Fields{
				"line": line,
				"url":  src,
			}).Warn("skipping record with unparsable target URI")
			continue
		}

		from := normalize(base)
		for _, link := range rec.Envelope.Payload.HTTPResponse.HTML.Links {
			dst, ok := e.resolve(base, link.URL)
			if !ok {
				stats.Skipped++
				continue
			}
			if err := w.Write(from, dst); err != nil {
				return stats, xerrors.Errorf("write edge: %w", err)
			}
			stats.Links++
		}
	}
	if err := sc.Err(); err != nil {
		return stats, xerrors.Errorf("read WAT: %w", err)
	}

	e.cfg.Logger.WithFields(logrus.Fields{
		"records":   stats.Records,
		"links":     stats.Links,
		"skipped":   stats.Skipped,
		"malformed": stats.Malformed,
	}).Info("link extraction complete")
	return stats, nil
}

// resolve turns a link into an absolute http(s) URL without fragment.
func (e *Extractor) resolve(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := base.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	if !e.cfg.KeepAssets && exclusionRegex.MatchString(u.Path) {
		return "", false
	}
	return normalize(u), true
}

// NormalizeURL returns raw in the form the extractor writes it to edge
// dumps.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return normalize(u), nil
}

func normalize(u *url.URL) string {
	cp := *u
	cp.Fragment = ""
	cp.RawFragment = ""
	return escapeRef(cp.String())
}

// escapeRef percent-encodes the characters that delimit edge dump records.
func escapeRef(s string) string {
	if !strings.ContainsAny(s, ",\r\n") {
		return s
	}
	return strings.NewReplacer(",", "%2C", "\r", "%0D", "\n", "%0A").Replace(s)
}
