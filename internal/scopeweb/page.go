package scopeweb

const viewerPage = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>polysynth scope</title>
<style>
body { margin: 0; background: #111; color: #ddd; font: 12px monospace; }
canvas { display: block; width: 100vw; height: 90vh; }
</style>
</head>
<body>
<canvas id="scope"></canvas>
<div id="info">connecting</div>
<script>
const canvas = document.getElementById('scope');
const info = document.getElementById('info');
const g = canvas.getContext('2d');
const ws = new WebSocket('ws://' + location.host + '/ws');
ws.onclose = () => { info.textContent = 'disconnected'; };
ws.onmessage = (ev) => {
  const f = JSON.parse(ev.data);
  canvas.width = canvas.clientWidth;
  canvas.height = canvas.clientHeight;
  const w = canvas.width, h = canvas.height;
  g.fillStyle = '#111';
  g.fillRect(0, 0, w, h);
  g.fillStyle = '#2a6';
  g.fillRect(0, h - f.rms * h, 8, f.rms * h);
  g.strokeStyle = '#6f6';
  g.beginPath();
  f.trace.forEach((y, i) => {
    const px = 12 + i * (w - 12) / Math.max(1, f.trace.length - 1);
    const py = h / 2 - y * h / 2;
    if (i === 0) g.moveTo(px, py); else g.lineTo(px, py);
  });
  g.stroke();
  info.textContent = 'rms ' + f.rms.toFixed(3) + '  period ' + f.period;
};
</script>
</body>
</html>
`
