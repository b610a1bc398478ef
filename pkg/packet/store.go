package packet

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-promptkit/pkg/canonical"
	"github.com/goliatone/go-promptkit/pkg/render"
	"github.com/goliatone/go-promptkit/pkg/resolve"
)

// Read loads a packet from dir. The metadata layout has no format field, so
// Output.Format is taken from the output_format parameter and falls back to
// markdown. A format chosen outside the parameters does not survive a round
// trip; the rendered text does.
func Read(dir string) (Packet, error) {
	promptPath := filepath.Join(dir, PromptFile)
	text, err := os.ReadFile(promptPath)
	if err != nil {
		return Packet{}, &PersistenceError{Op: "read", Path: promptPath, Err: err}
	}

	paramsPath := filepath.Join(dir, ParamsFile)
	rawParams, err := os.ReadFile(paramsPath)
	if err != nil {
		return Packet{}, &PersistenceError{Op: "read", Path: paramsPath, Err: err}
	}
	params, err := resolve.ParamsFromJSON(rawParams)
	if err != nil {
		return Packet{}, &PersistenceError{Op: "decode", Path: paramsPath, Err: err}
	}

	metaPath := filepath.Join(dir, MetaFile)
	var meta Metadata
	if err := readJSONStrict(metaPath, &meta); err != nil {
		return Packet{}, &PersistenceError{Op: "decode", Path: metaPath, Err: err}
	}

	return Packet{
		Dir:      dir,
		Output:   render.Output{Text: string(text), Format: render.FormatFromParams(params)},
		Params:   params,
		Metadata: meta,
	}, nil
}

// Verify recomputes both hashes from the packet contents and compares them
// with the recorded metadata.
func Verify(p Packet) error {
	paramsHash, err := canonical.Hash(p.Params.Map())
	if err != nil {
		return err
	}
	if paramsHash != p.Metadata.ParamsHash {
		return &IntegrityError{Dir: p.Dir, Field: "params_hash", Expected: p.Metadata.ParamsHash, Actual: paramsHash}
	}
	promptHash := canonical.HashBytes([]byte(p.Output.Text))
	if p.Metadata.PromptHash != "" && promptHash != p.Metadata.PromptHash {
		return &IntegrityError{Dir: p.Dir, Field: "prompt_hash", Expected: p.Metadata.PromptHash, Actual: promptHash}
	}
	return nil
}

// List returns the packet directory names under root, sorted, which is also
// chronological order. Names are relative to root; join them with root
// before calling Read. A missing root yields no packets.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "list", Path: root, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func readJSONStrict(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON: trailing content")
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory, syncs
// it and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
