package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/countdown-display/internal/mqtt"
	"github.com/sweeney/countdown-display/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatDuration,
	"remaining": func(d time.Duration) string {
		if d < 0 {
			return "-" + formatDuration(-d)
		}
		return formatDuration(d)
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Countdown Display</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.readout { font-size: 2.4em; white-space: pre; background: #111; color: #f33; padding: 0.3em 0.5em; display: inline-block; }
.running { color: green; font-weight: bold; }
.paused { color: #888; }
.alerting { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Countdown Display{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<p><span id="readout" class="readout">{{if .Observed}}{{.Display}}{{else}}---.--.--.--{{end}}</span></p>

<h2>Timer</h2>
<table>
<tr><th>Run state</th><td id="run-state" class="{{if .Timer.Running}}running{{else}}paused{{end}}">{{if .Timer.Running}}RUNNING{{else}}PAUSED{{end}}</td></tr>
<tr><th>Mode</th><td id="mode">{{orUnknown (printf "%s" .Timer.Mode)}}</td></tr>
<tr><th>Direction</th><td>{{orUnknown (printf "%s" .Timer.Direction)}}</td></tr>
<tr><th>Alert mode</th><td id="alert-mode">{{orUnknown (printf "%s" .Timer.AlertMode)}}</td></tr>
<tr><th>Remaining</th><td>{{remaining .Remaining}}</td></tr>
<tr><th>Expired</th><td class="{{if .Expired}}alerting{{end}}">{{if .Expired}}yes{{else}}no{{end}}</td></tr>
<tr><th>Alerting</th><td class="{{if .Alerting}}alerting{{end}}">{{if .Alerting}}yes{{else}}no{{end}}</td></tr>
{{if not .Timer.Target.IsZero}}<tr><th>Target</th><td>{{.Timer.Target.Format "2006-01-02T15:04:05Z07:00"}}</td></tr>{{end}}
<tr><th>Ready</th><td>{{if .Observed}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Started</th><td>{{.Counts.Started}}</td></tr>
<tr><th>Paused</th><td>{{.Counts.Paused}}</td></tr>
<tr><th>Reset</th><td>{{.Counts.Reset}}</td></tr>
<tr><th>Alert mode</th><td>{{.Counts.AlertMode}}</td></tr>
<tr><th>Expired</th><td>{{.Counts.Expired}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms ({{.Config.IdlePollMs}}ms paused)</td></tr>
<tr><th>Chips</th><td>{{.Config.Chips}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var readout = document.getElementById("readout");
  setInterval(function() {
    fetch("/display.txt", { cache: "no-store" }).then(function(r) {
      if (r.ok) {
        return r.text().then(function(text) {
          readout.textContent = text.replace(/\n$/, "");
        });
      }
    }).catch(function() {});
  }, 500);
})();
</script>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var dot = document.getElementById("live-dot");
  var runEl = document.getElementById("run-state");
  var alertEl = document.getElementById("alert-mode");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.countdown) {
        runEl.textContent = msg.countdown.running ? "RUNNING" : "PAUSED";
        runEl.className = msg.countdown.running ? "running" : "paused";
        alertEl.textContent = msg.countdown.alert_mode;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Topic  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Topic:    mqtt.Topic,
	}
	indexTmpl.Execute(w, data)
}
