// Package builtin implements the minimum tool surface spec §4.7 requires:
// file IO, search, command execution, git, HTTP, and interaction tools
// bound to one workspace.
package builtin

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ngoclaw/agentcore/internal/tool"
	"github.com/ngoclaw/agentcore/internal/workspace"
)

func schema(props map[string]any, required ...string) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func strProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func argStr(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// ReadFileTool reads a whole file or a line range.
type ReadFileTool struct{ ws *workspace.Workspace }

func NewReadFileTool(ws *workspace.Workspace) *ReadFileTool { return &ReadFileTool{ws: ws} }

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read a file's contents, optionally a line range." }
func (t *ReadFileTool) Kind() tool.Kind     { return tool.KindRead }
func (t *ReadFileTool) Schema() map[string]any {
	return schema(map[string]any{
		"path":       strProp("file path, relative to the workspace or absolute"),
		"start_line": intProp("1-based first line to include (optional)"),
		"end_line":   intProp("1-based last line to include (optional)"),
	}, "path")
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path := t.ws.Resolve(argStr(args, "path"))
	data, err := os.ReadFile(path)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	start := argInt(args, "start_line", 0)
	end := argInt(args, "end_line", 0)
	if start == 0 && end == 0 {
		return &tool.Result{Output: string(data), Success: true}, nil
	}
	lines := strings.Split(string(data), "\n")
	if start < 1 {
		start = 1
	}
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return &tool.Result{Output: "", Success: true}, nil
	}
	return &tool.Result{Output: strings.Join(lines[start-1:end], "\n"), Success: true}, nil
}

// WriteFileTool overwrites a file, creating parent directories as needed.
type WriteFileTool struct{ ws *workspace.Workspace }

func NewWriteFileTool(ws *workspace.Workspace) *WriteFileTool { return &WriteFileTool{ws: ws} }

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Write content to a file, overwriting it." }
func (t *WriteFileTool) Kind() tool.Kind     { return tool.KindEdit }
func (t *WriteFileTool) Schema() map[string]any {
	return schema(map[string]any{
		"path":    strProp("file path to write"),
		"content": strProp("full file content"),
	}, "path", "content")
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path := t.ws.Resolve(argStr(args, "path"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	if err := os.WriteFile(path, []byte(argStr(args, "content")), 0o644); err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{Output: fmt.Sprintf("wrote %s", path), Success: true}, nil
}

// AppendFileTool appends content to a file, creating it if missing.
type AppendFileTool struct{ ws *workspace.Workspace }

func NewAppendFileTool(ws *workspace.Workspace) *AppendFileTool { return &AppendFileTool{ws: ws} }

func (t *AppendFileTool) Name() string        { return "append_file" }
func (t *AppendFileTool) Description() string { return "Append content to the end of a file." }
func (t *AppendFileTool) Kind() tool.Kind     { return tool.KindEdit }
func (t *AppendFileTool) Schema() map[string]any {
	return schema(map[string]any{
		"path":    strProp("file path to append to"),
		"content": strProp("content to append"),
	}, "path", "content")
}

func (t *AppendFileTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path := t.ws.Resolve(argStr(args, "path"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	defer f.Close()
	if _, err := f.WriteString(argStr(args, "content")); err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{Output: fmt.Sprintf("appended to %s", path), Success: true}, nil
}

// FileExistsTool reports whether a path exists.
type FileExistsTool struct{ ws *workspace.Workspace }

func NewFileExistsTool(ws *workspace.Workspace) *FileExistsTool { return &FileExistsTool{ws: ws} }

func (t *FileExistsTool) Name() string        { return "file_exists" }
func (t *FileExistsTool) Description() string { return "Check whether a file or directory exists." }
func (t *FileExistsTool) Kind() tool.Kind     { return tool.KindRead }
func (t *FileExistsTool) Schema() map[string]any {
	return schema(map[string]any{"path": strProp("path to check")}, "path")
}

func (t *FileExistsTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path := t.ws.Resolve(argStr(args, "path"))
	_, err := os.Stat(path)
	exists := err == nil
	return &tool.Result{Output: fmt.Sprintf("%v", exists), Success: true, Metadata: map[string]any{"exists": exists}}, nil
}

// ListDirTool lists directory entries, non-recursive.
type ListDirTool struct{ ws *workspace.Workspace }

func NewListDirTool(ws *workspace.Workspace) *ListDirTool { return &ListDirTool{ws: ws} }

func (t *ListDirTool) Name() string        { return "list_dir" }
func (t *ListDirTool) Description() string { return "List the entries of a directory." }
func (t *ListDirTool) Kind() tool.Kind     { return tool.KindRead }
func (t *ListDirTool) Schema() map[string]any {
	return schema(map[string]any{"path": strProp("directory path, defaults to the workspace root")})
}

func (t *ListDirTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	p := argStr(args, "path")
	if p == "" {
		p = "."
	}
	path := t.ws.Resolve(p)
	entries, err := os.ReadDir(path)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	var b strings.Builder
	for _, e := range entries {
		suffix := ""
		if e.IsDir() {
			suffix = "/"
		}
		fmt.Fprintf(&b, "%s%s\n", e.Name(), suffix)
	}
	return &tool.Result{Output: b.String(), Success: true}, nil
}

// GlobTool finds files matching a glob pattern under the workspace.
type GlobTool struct{ ws *workspace.Workspace }

func NewGlobTool(ws *workspace.Workspace) *GlobTool { return &GlobTool{ws: ws} }

func (t *GlobTool) Name() string        { return "glob" }
func (t *GlobTool) Description() string { return "Find files matching a glob pattern." }
func (t *GlobTool) Kind() tool.Kind     { return tool.KindSearch }
func (t *GlobTool) Schema() map[string]any {
	return schema(map[string]any{"pattern": strProp("glob pattern, e.g. internal/*/*.go (** is not recursive)")}, "pattern")
}

func (t *GlobTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	pattern := t.ws.Resolve(argStr(args, "pattern"))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{Output: strings.Join(matches, "\n"), Success: true}, nil
}

// GrepFileTool searches for a substring within one file and returns
// matching lines with their 1-based line numbers.
type GrepFileTool struct{ ws *workspace.Workspace }

func NewGrepFileTool(ws *workspace.Workspace) *GrepFileTool { return &GrepFileTool{ws: ws} }

func (t *GrepFileTool) Name() string        { return "grep_in_file" }
func (t *GrepFileTool) Description() string { return "Search for a substring in one file." }
func (t *GrepFileTool) Kind() tool.Kind     { return tool.KindSearch }
func (t *GrepFileTool) Schema() map[string]any {
	return schema(map[string]any{
		"path":   strProp("file to search"),
		"needle": strProp("substring to search for"),
	}, "path", "needle")
}

func (t *GrepFileTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path := t.ws.Resolve(argStr(args, "path"))
	needle := argStr(args, "needle")
	f, err := os.Open(path)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	defer f.Close()
	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if strings.Contains(scanner.Text(), needle) {
			fmt.Fprintf(&b, "%d: %s\n", line, scanner.Text())
		}
	}
	return &tool.Result{Output: b.String(), Success: true}, nil
}

// GrepProjectTool walks the workspace tree searching every regular file for
// a substring, skipping common vendor/VCS directories.
type GrepProjectTool struct{ ws *workspace.Workspace }

func NewGrepProjectTool(ws *workspace.Workspace) *GrepProjectTool { return &GrepProjectTool{ws: ws} }

func (t *GrepProjectTool) Name() string { return "grep_in_project" }
func (t *GrepProjectTool) Description() string {
	return "Search every file under the workspace for a substring."
}
func (t *GrepProjectTool) Kind() tool.Kind { return tool.KindSearch }
func (t *GrepProjectTool) Schema() map[string]any {
	return schema(map[string]any{"needle": strProp("substring to search for")}, "needle")
}

var skipDirs = map[string]bool{".git": true, "node_modules": true, "vendor": true, ".idea": true}

func (t *GrepProjectTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	needle := argStr(args, "needle")
	var b strings.Builder
	root := t.ws.Dir()
	matchCount := 0
	const maxMatches = 200
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || matchCount >= maxMatches {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, needle) {
				rel, _ := filepath.Rel(root, path)
				fmt.Fprintf(&b, "%s:%d: %s\n", rel, i+1, line)
				matchCount++
				if matchCount >= maxMatches {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	out := b.String()
	if matchCount >= maxMatches {
		out += fmt.Sprintf("...[truncated at %d matches]\n", maxMatches)
	}
	return &tool.Result{Output: out, Success: true}, nil
}

// GetFileInfoTool reports size, mode, and modification time for a path.
type GetFileInfoTool struct{ ws *workspace.Workspace }

func NewGetFileInfoTool(ws *workspace.Workspace) *GetFileInfoTool { return &GetFileInfoTool{ws: ws} }

func (t *GetFileInfoTool) Name() string        { return "get_file_info" }
func (t *GetFileInfoTool) Description() string { return "Get size, mode, and mtime for a path." }
func (t *GetFileInfoTool) Kind() tool.Kind     { return tool.KindRead }
func (t *GetFileInfoTool) Schema() map[string]any {
	return schema(map[string]any{"path": strProp("path to inspect")}, "path")
}

func (t *GetFileInfoTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	path := t.ws.Resolve(argStr(args, "path"))
	info, err := os.Stat(path)
	if err != nil {
		return &tool.Result{Success: false, Error: err.Error()}, nil
	}
	return &tool.Result{
		Output:  fmt.Sprintf("size=%d mode=%s modified=%s dir=%v", info.Size(), info.Mode(), info.ModTime(), info.IsDir()),
		Success: true,
		Metadata: map[string]any{
			"size": info.Size(), "is_dir": info.IsDir(), "mode": info.Mode().String(),
		},
	}, nil
}
