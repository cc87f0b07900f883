package page

// skeleton is the document the page starts from. Everything inside #app is
// server-owned and replaced wholesale on each snapshot; the composer lives
// outside it so typing is never interrupted.
const skeleton = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Wisdomizer</title>
<style id="chroma-css"></style>
<style>` + pageCSS + `</style>
</head>
<body>
<div id="app">
<aside id="topics-sidebar">
<button id="new-chat-btn" type="button">+ New chat</button>
<div class="topic-list"><div class="topic-empty">No topics yet</div></div>
</aside>
<main id="chat">
<header class="chat-title"><h1 id="current-topic-name">Getting started with Wisdomizer</h1></header>
<div id="messages-container"></div>
<div id="file-preview-container" class="hidden"></div>
<div id="notifications"></div>
</main>
</div>
<form id="composer" autocomplete="off">
<div class="composer-tools">
<label class="attach-button" title="Attach file">📎<input id="file-input" type="file" hidden></label>
<button id="system-prompt-button" type="button" title="System prompt">⚙</button>
<button id="clear-button" type="button" title="Clear chat">🧹</button>
<button id="regenerate-button" type="button" title="Regenerate">↻</button>
<button id="stop-button" type="button" title="Stop">■</button>
</div>
<textarea id="message-input" rows="2" maxlength="4000" placeholder="Type your message..."></textarea>
<span id="char-count">0/4000</span>
<button id="send-button" type="submit">Send</button>
</form>
<script>` + clientJS + `</script>
</body>
</html>`

const pageCSS = `
body{margin:0;font-family:system-ui,sans-serif;background:#1d232a;color:#d6dde6;display:flex;flex-direction:column;height:100vh}
#app{flex:1;display:flex;min-height:0}
#topics-sidebar{width:260px;background:#15191e;padding:12px;overflow-y:auto}
#new-chat-btn{width:100%;margin-bottom:12px;padding:8px;border-radius:8px;border:0;background:#605dff;color:#fff;cursor:pointer}
.topic-item{display:flex;justify-content:space-between;align-items:center;padding:6px 8px;border-radius:6px;cursor:pointer}
.topic-item:hover,.topic-item.active{background:#2a323c}
.topic-actions button{background:none;border:0;color:inherit;cursor:pointer;opacity:.6}
.topic-empty{opacity:.5;font-size:.9em}
#chat{flex:1;display:flex;flex-direction:column;min-width:0;position:relative}
.chat-title h1{font-size:1.1em;margin:0;padding:12px 16px;border-bottom:1px solid #2a323c}
#messages-container{flex:1;overflow-y:auto;padding:16px}
.chat{display:grid;margin:10px 0;max-width:80%}
.chat-end{margin-left:auto;text-align:right}
.chat-header{font-size:.8em;opacity:.7}
.chat-bubble{padding:10px 14px;border-radius:14px;text-align:left;overflow-x:auto}
.msg-user{background:#605dff;color:#fff}
.msg-ai{background:#2a323c}
.chat-error{background:#5c1d1d}
.chat-footer{font-size:.75em;opacity:.5}
.chat-notice{text-align:center;font-size:.85em;opacity:.6;margin:8px 0}
.loading-history{text-align:center;opacity:.7;padding:24px}
.typing-indicator span{display:inline-block;width:6px;height:6px;margin:0 2px;border-radius:50%;background:#d6dde6;animation:blink 1.4s infinite both}
.typing-indicator span:nth-child(2){animation-delay:.2s}
.typing-indicator span:nth-child(3){animation-delay:.4s}
@keyframes blink{0%,80%,100%{opacity:.2}40%{opacity:1}}
.mermaid{background:#fff;border-radius:8px;padding:8px;overflow-x:auto}
.diagram-error{background:#3b1e1e;border-left:3px solid #f87272;padding:8px;border-radius:6px}
.diagram-error-line-highlight{background:#7a2b2b}
.diagram-error-source{white-space:pre;font-size:.85em}
#file-preview-container{padding:6px 16px}
.file-preview{display:inline-flex;gap:8px;align-items:center;background:#2a323c;border-radius:8px;padding:4px 8px}
.hidden{display:none}
.notification-container{position:fixed;z-index:50;display:flex;flex-direction:column;gap:8px;padding:12px}
.notification-top{top:0;left:50%;transform:translateX(-50%)}
.notification-bottom{bottom:0;left:50%;transform:translateX(-50%)}
.notification-top-left{top:0;left:0}
.notification-top-right{top:0;right:0}
.notification-bottom-left{bottom:0;left:0}
.notification-bottom-right{bottom:0;right:0}
.notification{display:flex;gap:8px;min-width:240px;padding:10px 12px;border-radius:8px;color:#fff}
.notification-success{background:#00a96e}
.notification-error{background:#e5484d}
.notification-warning{background:#c58a00}
.notification-info{background:#0082ce}
.notification-title{font-weight:600}
.notification-close{margin-left:auto;background:none;border:0;color:inherit;cursor:pointer}
#composer{display:flex;gap:8px;align-items:flex-end;padding:12px;border-top:1px solid #2a323c}
#composer textarea{flex:1;resize:none;border-radius:8px;padding:8px;background:#15191e;color:inherit;border:1px solid #2a323c}
.composer-tools button,.attach-button{background:none;border:0;color:inherit;cursor:pointer;font-size:1.1em}
#char-count{font-size:.75em;opacity:.6}
#send-button{padding:8px 16px;border-radius:8px;border:0;background:#605dff;color:#fff;cursor:pointer}
`

const clientJS = `
(function(){
  var app = document.getElementById('app');
  var input = document.getElementById('message-input');
  var count = document.getElementById('char-count');
  var version = 0;
  var ws;

  function send(msg){ if (ws && ws.readyState === 1) ws.send(JSON.stringify(msg)); }

  function connect(){
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    ws = new WebSocket(proto + location.host + '/ws');
    ws.onmessage = function(e){
      var msg = JSON.parse(e.data);
      if (msg.type === 'redirect') { location.href = msg.path; return; }
      if (msg.type === 'error') { console.error(msg.error); return; }
      if (msg.type === 'snapshot' && msg.version >= version) {
        version = msg.version;
        var box = document.getElementById('messages-container');
        var stick = box && box.scrollTop + box.clientHeight >= box.scrollHeight - 40;
        app.innerHTML = msg.html;
        box = document.getElementById('messages-container');
        if (box && stick) box.scrollTop = box.scrollHeight;
      }
    };
    ws.onclose = function(){ setTimeout(connect, 1000); };
  }

  document.getElementById('composer').addEventListener('submit', function(e){
    e.preventDefault();
    var text = input.value.trim();
    if (!text) return;
    send({type: 'send', text: text});
    input.value = '';
    count.textContent = '0/4000';
  });
  input.addEventListener('keydown', function(e){
    if (e.key === 'Enter' && !e.shiftKey) { e.preventDefault(); document.getElementById('send-button').click(); }
  });
  input.addEventListener('input', function(){ count.textContent = input.value.length + '/4000'; });

  document.getElementById('regenerate-button').onclick = function(){ send({type: 'regenerate'}); };
  document.getElementById('stop-button').onclick = function(){ send({type: 'stop'}); };
  document.getElementById('clear-button').onclick = function(){
    if (confirm('Clear the conversation?')) send({type: 'clear'});
  };
  document.getElementById('system-prompt-button').onclick = function(){
    var text = prompt('System prompt');
    if (text !== null) send({type: 'system', text: text});
  };
  document.getElementById('file-input').addEventListener('change', function(e){
    var file = e.target.files[0];
    if (!file) return;
    var form = new FormData();
    form.append('file', file);
    fetch('/ui/attachments', {method: 'POST', body: form});
    e.target.value = '';
  });

  app.addEventListener('click', function(e){
    var t = e.target;
    var dismiss = t.closest('.notification-close');
    if (dismiss) { send({type: 'dismiss', id: dismiss.dataset.dismiss}); return; }
    if (t.closest('.file-remove')) { send({type: 'detach'}); return; }
    if (t.closest('#new-chat-btn')) { send({type: 'new'}); return; }
    var rename = t.closest('.topic-rename');
    if (rename) {
      var title = prompt('New topic name');
      if (title) send({type: 'rename', id: rename.dataset.uuid, title: title});
      return;
    }
    var del = t.closest('.topic-delete');
    if (del) {
      if (confirm('Delete this topic?')) send({type: 'delete', id: del.dataset.uuid});
      return;
    }
    var item = t.closest('.topic-item');
    if (item) {
      send({type: 'open', id: item.dataset.uuid, name: item.querySelector('.topic-name').textContent});
    }
  });

  connect();
})();
`
