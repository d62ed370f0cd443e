package web

import (
	"html/template"
	"io"
	"strings"

	"github.com/dokzlo13/espanel/internal/view"
)

var pageTmpl = template.Must(template.New("panel").Funcs(template.FuncMap{
	"style": func(e view.ElementState) template.CSS {
		if e.Display == "" {
			return ""
		}
		return template.CSS("display: " + e.Display)
	},
	"classes": func(e view.ElementState) string {
		return strings.Join(e.Classes, " ")
	},
}).Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>ESP32-CAM</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.container { padding: 4em; background: #eee; text-align: center; }
#camera-stream { max-width: 100%; }
.buttons form { display: inline; }
.buttons button { padding: 0.6em 1.2em; opacity: 0.5; }
.buttons button.active { opacity: 1; font-weight: bold; }
</style>
</head>
<body>
<div class="container" style="{{style .Container}}">Chargement du flux...</div>
<img id="camera-stream" src="{{.StreamURL}}" alt="camera" style="{{style .Stream}}">

<p>Température : <span id="temperature-value">{{.Temperature.Text}}</span> °C</p>
<p>Humidité : <span id="humidity-value">{{.Humidity.Text}}</span> %</p>

<div class="buttons">
{{range .Buttons}}<form method="post" action="/buttons/{{.ID}}"><button id="{{.ID}}" class="{{classes .State}}">{{.Label}}</button></form>
{{end}}</div>
</body>
</html>
`))

type pageButton struct {
	ID    string
	Label string
	State view.ElementState
}

type pageData struct {
	StreamURL   string
	Stream      view.ElementState
	Container   view.ElementState
	Temperature view.ElementState
	Humidity    view.ElementState
	Buttons     []pageButton
}

func renderPage(w io.Writer, snap view.Snapshot, streamURL string) error {
	data := pageData{
		StreamURL:   streamURL,
		Stream:      snap.Elements[view.CameraStream],
		Container:   snap.Elements[view.Container],
		Temperature: snap.Elements[view.TemperatureValue],
		Humidity:    snap.Elements[view.HumidityValue],
	}
	for _, b := range []struct{ id, label string }{
		{view.BtnRed, "Rouge"},
		{view.BtnGreen, "Vert"},
		{view.BtnBlue, "Bleu"},
		{view.BtnOff, "On/Off"},
	} {
		data.Buttons = append(data.Buttons, pageButton{ID: b.id, Label: b.label, State: snap.Elements[b.id]})
	}
	return pageTmpl.Execute(w, data)
}
