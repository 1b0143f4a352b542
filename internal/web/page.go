package web

import (
	"html/template"

	"chat-backend/internal/chat"
)

type pageData struct {
	Title string
	Turns []chat.Turn
	Busy  bool
}

func (pageData) RoleClass(role chat.Role) string {
	if role == chat.RoleUser {
		return "user-message"
	}
	return "bot-message"
}

var pageTemplate = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{if .Busy}}<meta http-equiv="refresh" content="2">{{end}}
<style>
body { background-color: #f7f9fc; margin: 0; font-family: sans-serif; }
.title { text-align: center; font-size: 30px; font-weight: bold; color: #0078FF; padding: 10px 0 5px; }
.chat-container { width: 80%; max-width: 700px; margin: auto; display: flex; flex-direction: column; background: #FFFFFF; border-radius: 12px; }
.user-message, .bot-message { border-radius: 20px; padding: 10px 15px; margin: 5px; width: fit-content; max-width: 75%; white-space: pre-wrap; }
.user-message { background-color: #0078FF; color: white; align-self: flex-end; }
.bot-message { background-color: #e6e6e6; color: black; align-self: flex-start; }
.thinking { color: #666; font-style: italic; margin: 5px 15px; }
form { width: 80%; max-width: 700px; margin: 10px auto; display: flex; gap: 8px; }
form input[type=text] { flex: 1; border-radius: 25px; border: 2px solid #0078FF; padding: 10px; }
</style>
</head>
<body>
<div class="title">&#129302; {{.Title}}</div>
<div class="chat-container">
{{range .Turns}}<div class="{{$.RoleClass .Role}}">{{.Content}}</div>
{{end}}{{if .Busy}}<div class="thinking">&#129302; Thinking...</div>{{end}}
</div>
<form method="post" action="/messages">
<input type="text" name="message" placeholder="Type your message..." autocomplete="off" autofocus required {{if .Busy}}disabled{{end}}>
</form>
<form method="post" action="/reset"><button type="submit">New chat</button></form>
</body>
</html>
`))
