package explorer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/fruitsalade/explorer/pkg/client"
	"github.com/fruitsalade/explorer/pkg/protocol"
	"github.com/fruitsalade/explorer/pkg/retry"
	"github.com/fruitsalade/explorer/pkg/tree"
)

// fakeGateway is an in-memory gateway. Folders are keyed by path and files
// by id.
type fakeGateway struct {
	mu       sync.Mutex
	folders  map[string]protocol.FolderRecord
	files    map[string]protocol.FileRecord
	comments map[string]string
	nextFile int

	// requests counts requests per endpoint path.
	requests map[string]int
	// bodies holds the last request body per endpoint path.
	bodies map[string][]byte
	// failures makes an endpoint answer with a status and message.
	failures map[string]failure
}

type failure struct {
	status  int
	message string
}

// newFakeGateway seeds:
//
//	/Users
//	  Docs/        (Drafts/ with draft.txt, report.txt)
//	  Archive/
//	  notes.txt
func newFakeGateway() *fakeGateway {
	g := &fakeGateway{
		folders:  make(map[string]protocol.FolderRecord),
		files:    make(map[string]protocol.FileRecord),
		comments: make(map[string]string),
		requests: make(map[string]int),
		bodies:   make(map[string][]byte),
		failures: make(map[string]failure),
	}
	for _, p := range []string{"/Users", "/Users/Docs", "/Users/Docs/Drafts", "/Users/Archive"} {
		g.addFolder(p)
	}
	g.addFile("f-notes", "notes.txt", "/Users")
	g.addFile("f-report", "report.txt", "/Users/Docs")
	g.addFile("f-draft", "draft.txt", "/Users/Docs/Drafts")
	return g
}

func (g *fakeGateway) addFolder(path string) {
	g.folders[path] = protocol.FolderRecord{Name: path[strings.LastIndex(path, "/")+1:], Path: path}
}

func (g *fakeGateway) addFile(id, name, folder string) {
	g.files[id] = protocol.FileRecord{ID: id, Name: name, FolderPath: folder}
}

func (g *fakeGateway) fail(path string, status int, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[path] = failure{status: status, message: message}
}

func (g *fakeGateway) count(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[path]
}

func (g *fakeGateway) body(t *testing.T, path string, out any) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := json.Unmarshal(g.bodies[path], out); err != nil {
		t.Fatalf("decode body of %s: %v", path, err)
	}
}

// start serves g and returns a client for it that never retries.
func (g *fakeGateway) start(t *testing.T) *client.Client {
	t.Helper()
	ts := httptest.NewServer(g)
	t.Cleanup(ts.Close)
	return client.New(client.Config{BaseURL: ts.URL, RetryConfig: retry.Once()})
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests[r.URL.Path]++
	if r.Method == http.MethodPost {
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Message: "bad json"})
			return
		}
		g.bodies[r.URL.Path] = raw
	}
	if f, ok := g.failures[r.URL.Path]; ok {
		writeJSON(w, f.status, protocol.ErrorResponse{Message: f.message})
		return
	}

	q := r.URL.Query()
	switch r.URL.Path {
	case protocol.PathFolderContents:
		path := q.Get("path")
		if !g.exists(path) {
			writeJSON(w, http.StatusNotFound, protocol.ErrorResponse{Message: "Folder not found"})
			return
		}
		writeJSON(w, http.StatusOK, protocol.ContentsResponse{Folders: g.childFolders(path), Files: g.childFiles(path)})
	case protocol.PathFilesAndFolders:
		path := q.Get("path")
		page, _ := strconv.Atoi(q.Get("page"))
		size, _ := strconv.Atoi(q.Get("pageSize"))
		folders, files := g.childFolders(path), g.childFiles(path)
		writeJSON(w, http.StatusOK, protocol.PageResponse{
			Folders:    folders,
			Files:      files,
			Page:       page,
			PageSize:   size,
			TotalCount: len(folders) + len(files),
		})
	case protocol.PathSearch:
		writeJSON(w, http.StatusOK, g.search(q.Get("path"), q.Get("keyword")))
	case protocol.PathOnlyFolders:
		writeJSON(w, http.StatusOK, g.childFolders(q.Get("path")))
	case protocol.PathFolderDetail:
		rec, ok := g.folders[q.Get("path")]
		if !ok {
			writeJSON(w, http.StatusNotFound, protocol.ErrorResponse{Message: "Folder not found"})
			return
		}
		writeJSON(w, http.StatusOK, protocol.FolderDetailResponse{
			Name: rec.Name, Path: rec.Path, Icon: rec.Icon, Comment: g.comments[rec.Path],
		})
	case protocol.PathRenameFolder:
		var req protocol.RenameFolderRequest
		g.decode(r, &req)
		g.relocate(req.CurrentPath, tree.BuildChildPath(tree.ParentPath(req.CurrentPath), req.NewName), false)
		w.WriteHeader(http.StatusOK)
	case protocol.PathRenameFile:
		var req protocol.RenameFileRequest
		g.decode(r, &req)
		rec := g.files[req.FileID]
		rec.Name = req.NewFileName
		g.files[req.FileID] = rec
		w.WriteHeader(http.StatusOK)
	case protocol.PathDeleteMultiSource:
		var req protocol.DeleteMultiSourceRequest
		g.decode(r, &req)
		for _, p := range req.FolderPathsToDelete {
			g.removeFolder(p)
		}
		for _, f := range req.FilesToDelete {
			delete(g.files, f.FileID)
		}
		w.WriteHeader(http.StatusOK)
	case protocol.PathBulkDelete:
		var req protocol.BulkDeleteRequest
		g.decode(r, &req)
		for _, p := range req.FolderPaths {
			g.removeFolder(p)
		}
		for _, id := range req.FileIDs {
			delete(g.files, id)
		}
		w.WriteHeader(http.StatusOK)
	case protocol.PathCreateFolder:
		var req protocol.CreateFolderRequest
		g.decode(r, &req)
		path := tree.BuildChildPath(req.ParentPath, req.Name)
		g.folders[path] = protocol.FolderRecord{Name: req.Name, Path: path, Icon: req.Icon}
		writeJSON(w, http.StatusOK, g.folders[path])
	case protocol.PathCreateFile:
		var req protocol.CreateFileRequest
		g.decode(r, &req)
		g.nextFile++
		id := fmt.Sprintf("f-new-%d", g.nextFile)
		g.addFile(id, req.FirstName+" "+req.LastName, req.FolderPath)
		writeJSON(w, http.StatusOK, g.files[id])
	case protocol.PathAddComment:
		var req protocol.AddCommentRequest
		g.decode(r, &req)
		g.comments[req.Path] = req.Comment
		w.WriteHeader(http.StatusOK)
	case protocol.PathChangeIcon:
		var req protocol.ChangeIconRequest
		g.decode(r, &req)
		rec := g.folders[req.Path]
		rec.Icon = req.Icon
		g.folders[req.Path] = rec
		w.WriteHeader(http.StatusOK)
	case protocol.PathMoveMultiSource:
		var req protocol.MoveMultiSourceRequest
		g.decode(r, &req)
		for _, p := range req.FolderPaths {
			g.relocate(p, tree.BuildChildPath(req.DestinationPath, g.folders[p].Name), req.IsCopy)
		}
		for _, f := range req.Files {
			g.relocateFile(f.FileID, req.DestinationPath, req.IsCopy)
		}
		w.WriteHeader(http.StatusOK)
	case protocol.PathMoveFoldersAndFiles:
		var req protocol.MoveFoldersAndFilesRequest
		g.decode(r, &req)
		for _, name := range req.FolderNames {
			g.relocate(tree.BuildChildPath(req.SourcePath, name), tree.BuildChildPath(req.DestinationPath, name), req.IsCopy)
		}
		for _, id := range req.FileIDs {
			g.relocateFile(id, req.DestinationPath, req.IsCopy)
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (g *fakeGateway) decode(r *http.Request, out any) {
	_ = json.Unmarshal(g.bodies[r.URL.Path], out)
}

func (g *fakeGateway) exists(path string) bool {
	if path == "/" {
		return true
	}
	_, ok := g.folders[path]
	return ok
}

func (g *fakeGateway) childFolders(path string) []protocol.FolderRecord {
	var out []protocol.FolderRecord
	for p, rec := range g.folders {
		if tree.ParentPath(p) == path {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (g *fakeGateway) childFiles(path string) []protocol.FileRecord {
	var out []protocol.FileRecord
	for _, rec := range g.files {
		if rec.FolderPath == path {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (g *fakeGateway) search(path, keyword string) protocol.ContentsResponse {
	var resp protocol.ContentsResponse
	keyword = strings.ToLower(keyword)
	for p, rec := range g.folders {
		if under(p, path) && p != path && strings.Contains(strings.ToLower(rec.Name), keyword) {
			resp.Folders = append(resp.Folders, rec)
		}
	}
	for _, rec := range g.files {
		if under(rec.FolderPath, path) && strings.Contains(strings.ToLower(rec.Name), keyword) {
			resp.Files = append(resp.Files, rec)
		}
	}
	sort.Slice(resp.Folders, func(i, j int) bool { return resp.Folders[i].Path < resp.Folders[j].Path })
	sort.Slice(resp.Files, func(i, j int) bool { return resp.Files[i].ID < resp.Files[j].ID })
	return resp
}

func under(path, root string) bool {
	return path == root || strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/")
}

func (g *fakeGateway) removeFolder(path string) {
	for p := range g.folders {
		if under(p, path) {
			delete(g.folders, p)
		}
	}
	for id, rec := range g.files {
		if under(rec.FolderPath, path) {
			delete(g.files, id)
		}
	}
}

// relocate moves or copies the folder at from, with everything below it, to to.
func (g *fakeGateway) relocate(from, to string, dup bool) {
	for p, rec := range g.folders {
		if !under(p, from) {
			continue
		}
		np := to + strings.TrimPrefix(p, from)
		if !dup {
			delete(g.folders, p)
		}
		rec.Path = np
		rec.Name = np[strings.LastIndex(np, "/")+1:]
		g.folders[np] = rec
	}
	for id, rec := range g.files {
		if !under(rec.FolderPath, from) {
			continue
		}
		folder := to + strings.TrimPrefix(rec.FolderPath, from)
		if dup {
			g.nextFile++
			id = fmt.Sprintf("f-copy-%d", g.nextFile)
			rec.ID = id
		}
		rec.FolderPath = folder
		g.files[id] = rec
	}
}

func (g *fakeGateway) relocateFile(id, folder string, dup bool) {
	rec := g.files[id]
	if dup {
		g.nextFile++
		rec.ID = fmt.Sprintf("f-copy-%d", g.nextFile)
	}
	rec.FolderPath = folder
	g.files[rec.ID] = rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
