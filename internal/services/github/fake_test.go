package github_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeFile struct {
	content []byte
	sha     string
}

type fakePull struct {
	Number   int     `json:"number"`
	State    string  `json:"state"`
	HTMLURL  string  `json:"html_url"`
	Title    string  `json:"title"`
	Head     fakeRef `json:"head"`
	Base     fakeRef `json:"base"`
	MergedAt *string `json:"merged_at"`
}

type fakeRef struct {
	Ref string `json:"ref"`
}

// fakeGitHub serves the subset of the REST API the client uses for the
// repository acme/notes.
type fakeGitHub struct {
	t      *testing.T
	mu     sync.Mutex
	seq    int
	heads  map[string]string
	files  map[string]map[string]fakeFile
	pulls  []fakePull
	server *httptest.Server
	// failWith, when set, answers every request with this status.
	failWith int
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{
		t:     t,
		heads: map[string]string{},
		files: map[string]map[string]fakeFile{},
	}
	f.heads["main"] = f.next("c")
	f.files["main"] = map[string]fakeFile{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/notes", f.getRepo)
	mux.HandleFunc("GET /repos/acme/notes/git/ref/heads/{branch...}", f.getRef)
	mux.HandleFunc("POST /repos/acme/notes/git/refs", f.createRef)
	mux.HandleFunc("GET /repos/acme/notes/contents/{path...}", f.getContents)
	mux.HandleFunc("PUT /repos/acme/notes/contents/{path...}", f.putContents)
	mux.HandleFunc("GET /repos/acme/notes/pulls", f.listPulls)
	mux.HandleFunc("POST /repos/acme/notes/pulls", f.createPull)
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.failWith
		f.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) URL() string { return f.server.URL + "/" }

func (f *fakeGitHub) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = status
}

func (f *fakeGitHub) merge(number int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range f.pulls {
		if f.pulls[i].Number == number {
			f.pulls[i].State = "closed"
			f.pulls[i].MergedAt = &now
		}
	}
}

func (f *fakeGitHub) next(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%04d", prefix, f.seq)
}

func (f *fakeGitHub) getRepo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"full_name": "acme/notes", "default_branch": "main"})
}

func (f *fakeGitHub) getRef(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	branch := r.PathValue("branch")
	sha, ok := f.heads[branch]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ref":    "refs/heads/" + branch,
		"object": map[string]string{"sha": sha, "type": "commit"},
	})
}

func (f *fakeGitHub) createRef(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	branch := strings.TrimPrefix(body.Ref, "refs/heads/")
	if _, ok := f.heads[branch]; ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Reference already exists"})
		return
	}
	var source string
	for name, sha := range f.heads {
		if sha == body.SHA {
			source = name
		}
	}
	if source == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Object does not exist"})
		return
	}
	files := map[string]fakeFile{}
	for p, file := range f.files[source] {
		files[p] = file
	}
	f.heads[branch] = body.SHA
	f.files[branch] = files
	writeJSON(w, http.StatusCreated, map[string]any{"ref": body.Ref, "object": map[string]string{"sha": body.SHA}})
}

func (f *fakeGitHub) getContents(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	branch := r.URL.Query().Get("ref")
	target := strings.Trim(r.PathValue("path"), "/")
	files, ok := f.files[branch]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No commit found for the ref " + branch})
		return
	}
	if file, ok := files[target]; ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"type":     "file",
			"encoding": "base64",
			"path":     target,
			"name":     path.Base(target),
			"sha":      file.sha,
			"content":  file.content,
		})
		return
	}
	var entries []map[string]string
	for p, file := range files {
		if path.Dir(p) == target {
			entries = append(entries, map[string]string{"type": "file", "path": p, "name": path.Base(p), "sha": file.sha})
		}
	}
	if len(entries) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i]["path"] < entries[j]["path"] })
	writeJSON(w, http.StatusOK, entries)
}

func (f *fakeGitHub) putContents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
		Content []byte `json:"content"`
		SHA     string `json:"sha"`
		Branch  string `json:"branch"`
		Author  struct {
			Name string `json:"name"`
		} `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	target := r.PathValue("path")
	files, ok := f.files[body.Branch]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Branch " + body.Branch + " not found"})
		return
	}
	current, exists := files[target]
	switch {
	case body.SHA == "" && exists:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Invalid request.\n\n\"sha\" wasn't supplied."})
		return
	case body.SHA != "" && (!exists || current.sha != body.SHA):
		writeJSON(w, http.StatusConflict, map[string]string{"message": target + " does not match " + body.SHA})
		return
	}
	file := fakeFile{content: body.Content, sha: f.next("b")}
	files[target] = file
	commit := f.next("c")
	f.heads[body.Branch] = commit
	status := http.StatusCreated
	if exists {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"content": map[string]string{"path": target, "sha": file.sha},
		"commit":  map[string]string{"sha": commit, "message": body.Message},
	})
}

func (f *fakeGitHub) listPulls(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	head := strings.TrimPrefix(r.URL.Query().Get("head"), "acme:")
	matches := []fakePull{}
	for i := len(f.pulls) - 1; i >= 0; i-- {
		if f.pulls[i].Head.Ref == head {
			matches = append(matches, f.pulls[i])
		}
	}
	writeJSON(w, http.StatusOK, matches)
}

func (f *fakeGitHub) createPull(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
		Head  string `json:"head"`
		Base  string `json:"base"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pr := range f.pulls {
		if pr.Head.Ref == body.Head && pr.State == "open" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"message": "Validation Failed",
				"errors": []map[string]string{{
					"resource": "PullRequest",
					"code":     "custom",
					"message":  "A pull request already exists for acme:" + body.Head + ".",
				}},
			})
			return
		}
	}
	if _, ok := f.heads[body.Head]; !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Validation Failed"})
		return
	}
	pr := fakePull{
		Number:  len(f.pulls) + 1,
		State:   "open",
		Title:   body.Title,
		Head:    fakeRef{Ref: body.Head},
		Base:    fakeRef{Ref: body.Base},
		HTMLURL: fmt.Sprintf("https://github.example/acme/notes/pull/%d", len(f.pulls)+1),
	}
	f.pulls = append(f.pulls, pr)
	writeJSON(w, http.StatusCreated, pr)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
