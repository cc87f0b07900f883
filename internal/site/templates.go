package site

// pageTemplate is the html/template for each rendered document. Pages are
// self-contained: styles are inlined so a page can be opened or shared on
// its own.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}{{if .SiteTitle}} · {{.SiteTitle}}{{end}}</title>
  <style>{{.HighlightCSS}}</style>
  <style>{{.PageCSS}}</style>
</head>
<body>
  {{if .Nav}}<nav class="sidebar">
    <h2 class="site-title">{{.SiteTitle}}</h2>
    {{.Nav}}
  </nav>{{end}}
  <main class="content">
    <article class="page-content">
      {{.Content}}
    </article>
    {{if .Footer}}<footer class="page-footer">{{.Footer}}</footer>{{end}}
  </main>
</body>
</html>`

const pageCSS = `
:root{--bg:#fff;--text:#1f2328;--muted:#59636e;--border:#d1d9e0;--accent:#605dff;--code-bg:#f6f8fa}
*{box-sizing:border-box}
body{margin:0;display:flex;font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif;color:var(--text);background:var(--bg);line-height:1.6}
.sidebar{width:260px;flex-shrink:0;padding:16px;border-right:1px solid var(--border);min-height:100vh}
.sidebar ul{list-style:none;padding-left:12px;margin:0}
.sidebar a{color:var(--text);text-decoration:none}
.sidebar a.active{color:var(--accent);font-weight:600}
.dir-toggle{font-weight:600;color:var(--muted)}
.site-title{font-size:1.1em}
.content{flex:1;min-width:0;padding:32px 48px;max-width:960px}
pre{background:var(--code-bg);padding:12px;border-radius:6px;overflow-x:auto}
code{font-family:ui-monospace,SFMono-Regular,Menlo,monospace;font-size:.9em}
table{border-collapse:collapse}
td,th{border:1px solid var(--border);padding:6px 12px}
blockquote{margin:0;padding-left:16px;border-left:4px solid var(--border);color:var(--muted)}
.mermaid{margin:16px 0;overflow-x:auto}
.diagram-error{background:#fff1f0;border-left:4px solid #cf222e;padding:12px;border-radius:6px}
.diagram-error-title{font-weight:600;color:#cf222e}
.diagram-error-source{white-space:pre;font-size:.85em}
.diagram-error-line-highlight{background:#ffd7d5}
.diagram-error-hint{color:var(--muted);font-size:.9em}
.page-footer{margin-top:48px;color:var(--muted);font-size:.85em;border-top:1px solid var(--border);padding-top:12px}
.chat-turn{margin:24px 0}
.chat-role{font-size:.8em;text-transform:uppercase;letter-spacing:.05em;color:var(--muted)}
`
