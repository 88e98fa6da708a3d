package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/hydro-controller/internal/logic"
	"github.com/sweeney/hydro-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"onOff": func(on bool) string {
		if on {
			return "ON"
		}
		return "OFF"
	},
	"zone": func(i int) string {
		return logic.Zone(i).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Hydro Controller</title>
<style>
body { font-family: sans-serif; max-width: 720px; margin: 1.5em auto; padding: 0 1em; color: #222; }
h1 { font-size: 1.3em; margin-bottom: 0.2em; }
h2 { font-size: 1.05em; margin: 1.2em 0 0.3em; color: #355; }
table { border-collapse: collapse; width: 100%; }
td, th { text-align: left; padding: 3px 6px; border-bottom: 1px solid #e4e4e4; }
th { width: 45%; font-weight: normal; color: #555; }
.on, .connected { color: #1a7f37; font-weight: bold; }
.off { color: #999; }
.high { color: #c60; font-weight: bold; }
.disconnected { color: #c00; }
#link { display: inline-block; width: 0.6em; height: 0.6em; border-radius: 50%; margin-left: 0.4em; background: #c60; }
#link.live { background: #1a7f37; }
#link.down { background: #c00; }
</style>
</head>
<body>
<h1>Hydro Controller{{if .Config.WSBroker}}<span id="link" title="connecting"></span>{{end}}</h1>

<h2>Cycle</h2>
<table>
<tr><th>State</th><td id="state">{{.Machine.State}}</td></tr>
<tr><th>Main cycle</th><td id="main-cycle">{{if .Machine.Control.IsMainCycle}}running{{else}}stopped{{end}}</td></tr>
<tr><th>Control</th><td id="control">{{.Machine.Control.Control}}</td></tr>
<tr><th>Buttons ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Relays</h2>
<table>
{{range .Relays}}<tr><th>{{.Name}}</th><td id="relay-{{.Name}}" class="{{if .On}}on{{else}}off{{end}}">{{onOff .On}}</td></tr>
{{end}}</table>

<h2>Zones</h2>
<table>
{{range $i, $z := .Levels}}<tr><th>{{zone $i}}</th><td class="{{if $z.AboveSetpoint}}high{{end}}">{{if $z.Valid}}{{printf "%.1f" $z.Level}}{{if $z.AboveSetpoint}} (above setpoint){{end}}{{else}}no reading{{end}}</td></tr>
{{end}}</table>

<h2>Parameters</h2>
<table>
{{range .Params}}<tr><th>{{.Index}} {{.Name}}</th><td>{{.Value}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topics</th><td>{{.Config.TopicPrefix}}/#</td></tr>
<tr><th>Keepalives sent</th><td>{{.Link.KeepalivesSent}}</td></tr>
<tr><th>Keepalives received</th><td>{{.Link.KeepalivesReceived}}</td></tr>
<tr><th>Dropped / rejected</th><td>{{.Link.Dropped}} / {{.Link.Rejected}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Control policy</th><td>{{.Config.Policy}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/params.json">Parameters</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Config.TopicPrefix}}/status";
  var link = document.getElementById("link");

  function setText(id, text) {
    var el = document.getElementById(id);
    if (el) { el.textContent = text; }
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });
  var states = { connect: "live", reconnect: "", offline: "down", error: "down" };
  Object.keys(states).forEach(function(ev) {
    client.on(ev, function() {
      link.className = states[ev];
      link.title = ev;
      if (ev === "connect") { client.subscribe(topic); }
    });
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (!msg.status) { return; }
      setText("state", msg.status.state);
      setText("main-cycle", msg.status.is_main_cycle ? "running" : "stopped");
      setText("control", msg.status.control_mode);
      for (var name in msg.status.relays) {
        var el = document.getElementById("relay-" + name);
        if (el) {
          var on = msg.status.relays[name];
          el.textContent = on ? "ON" : "OFF";
          el.className = on ? "on" : "off";
        }
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

// formatUptime renders d as days and a clock, e.g. "2d 03:14:07".
func formatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	days, secs := secs/86400, secs%86400
	clock := fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, clock)
	}
	return clock
}

// relayRow is one line of the relay table.
type relayRow struct {
	Name string
	On   bool
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Relays []relayRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	for r, on := range snap.Machine.Relays {
		data.Relays = append(data.Relays, relayRow{Name: logic.Relay(r).String(), On: on})
	}
	indexTmpl.Execute(w, data)
}
