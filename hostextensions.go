package otter

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/otterjs/otter/internal/extension"
	"github.com/otterjs/otter/internal/hostops"
)

// hostExtension builds the built-in "host" Extension every Runtime
// registers at construction, wiring internal/hostops' capability-gated
// filesystem/storage/compression/websocket ops onto the global object the
// way the teacher's setupKV/setupStorage/setupWebSocket wire Go functions
// onto a fresh VM (spec.md §4.7: "at minimum... one capability-gated op").
// This is not part of the JS-visible extension surface an embedder
// registers later (RegisterExtension is exported for exactly that); it is
// the runtime's own baseline, expressed through the same mechanism so the
// extension bridge is exercised even in a Runtime nobody extends further.
func (r *Runtime) hostExtension() *extension.Extension {
	ext := extension.New("host")
	st := &lazyStore{dataDir: r.dataDir()}

	ext.AddOp(extension.OpDecl{
		Name:       "__otter_fs_read_file",
		Kind:       extension.OpSync,
		Capability: "read",
		Sync: func(args []any) (any, error) {
			path, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			data, err := hostops.ReadFile(r.caps, path)
			if err != nil {
				return nil, err
			}
			return base64.StdEncoding.EncodeToString(data), nil
		},
	})

	ext.AddOp(extension.OpDecl{
		Name:       "__otter_fs_write_file",
		Kind:       extension.OpSync,
		Capability: "write",
		Sync: func(args []any) (any, error) {
			path, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			b64, err := stringArg(args, 1)
			if err != nil {
				return nil, err
			}
			data, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return nil, fmt.Errorf("otter: __otter_fs_write_file: invalid base64: %w", err)
			}
			if err := hostops.WriteFile(r.caps, path, data, 0); err != nil {
				return nil, err
			}
			return nil, nil
		},
	})

	ext.AddOp(extension.OpDecl{
		Name:       "__otter_storage_get",
		Kind:       extension.OpSync,
		Capability: "write", // storage shares the write capability: a namespace that can't be written also can't be read back
		Sync: func(args []any) (any, error) {
			ns, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			key, err := stringArg(args, 1)
			if err != nil {
				return nil, err
			}
			store, err := st.get()
			if err != nil {
				return nil, err
			}
			val, ok, err := store.Get(ns, key)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			return val, nil
		},
	})

	ext.AddOp(extension.OpDecl{
		Name:       "__otter_storage_put",
		Kind:       extension.OpSync,
		Capability: "write",
		Sync: func(args []any) (any, error) {
			ns, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			key, err := stringArg(args, 1)
			if err != nil {
				return nil, err
			}
			val, err := stringArg(args, 2)
			if err != nil {
				return nil, err
			}
			ttl := 0
			if len(args) > 3 {
				if f, ok := args[3].(float64); ok {
					ttl = int(f)
				}
			}
			store, err := st.get()
			if err != nil {
				return nil, err
			}
			if err := store.Put(ns, key, val, ttl); err != nil {
				return nil, err
			}
			return nil, nil
		},
	})

	ext.AddOp(extension.OpDecl{
		Name: "__otter_compress",
		Kind: extension.OpSync,
		Sync: func(args []any) (any, error) {
			format, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			b64, err := stringArg(args, 1)
			if err != nil {
				return nil, err
			}
			data, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return nil, fmt.Errorf("otter: __otter_compress: invalid base64: %w", err)
			}
			out, err := hostops.Compress(format, data)
			if err != nil {
				return nil, err
			}
			return base64.StdEncoding.EncodeToString(out), nil
		},
	})

	ext.AddOp(extension.OpDecl{
		Name: "__otter_decompress",
		Kind: extension.OpSync,
		Sync: func(args []any) (any, error) {
			format, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			b64, err := stringArg(args, 1)
			if err != nil {
				return nil, err
			}
			data, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return nil, fmt.Errorf("otter: __otter_decompress: invalid base64: %w", err)
			}
			out, err := hostops.Decompress(format, data)
			if err != nil {
				return nil, err
			}
			return base64.StdEncoding.EncodeToString(out), nil
		},
	})

	ext.AddOp(extension.OpDecl{
		Name:       "__otter_ws_dial",
		Kind:       extension.OpAsync,
		Capability: "net",
		Async: func(args []any) <-chan extension.AsyncResult {
			ch := make(chan extension.AsyncResult, 1)
			go func() {
				url, err := stringArg(args, 0)
				if err != nil {
					ch <- extension.AsyncResult{Err: err}
					return
				}
				conn, err := hostops.Dial(context.Background(), url)
				if err != nil {
					ch <- extension.AsyncResult{Err: err}
					return
				}
				id := r.trackWSConn(conn)
				ch <- extension.AsyncResult{Value: id}
			}()
			return ch
		},
	})

	return ext
}

// dataDir resolves Config.DataDir, falling back to an os.TempDir
// subdirectory when unset so the storage op works out of the box.
func (r *Runtime) dataDir() string {
	if r.config.DataDir != "" {
		return r.config.DataDir
	}
	return filepath.Join(os.TempDir(), "otter-kv")
}

// lazyStore defers opening the gorm/sqlite-backed hostops.Store until the
// first storage op actually runs, so a Runtime that never touches storage
// never creates a database file.
type lazyStore struct {
	dataDir string
	mu      sync.Mutex
	store   *hostops.Store
	err     error
}

func (s *lazyStore) get() (*hostops.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil && s.err == nil {
		s.store, s.err = hostops.OpenStore(s.dataDir, "default")
	}
	return s.store, s.err
}

// trackWSConn stores conn under a fresh id in this Runtime's connection
// table, the way the teacher's request-state table keys a wsConn by reqID
// (websocket.go), so script gets back an opaque handle rather than a Go
// pointer.
func (r *Runtime) trackWSConn(conn *hostops.Conn) string {
	id := hostops.RequestID()
	r.wsMu.Lock()
	if r.wsConns == nil {
		r.wsConns = map[string]*hostops.Conn{}
	}
	r.wsConns[id] = conn
	r.wsMu.Unlock()
	return id
}

func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("otter: expected argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("otter: argument %d must be a string", i)
	}
	return s, nil
}
