package dashboard

import "html/template"

var pageTemplate = template.Must(template.New("dashboard").Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>convstat — Conversation Usage Dashboard</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; background: #f6f5f4; color: #100F0F; }
.header { background: #100F0F; color: #FFFCF0; padding: 1.5rem 2rem; }
.header h1 { font-size: 1.4rem; font-weight: 600; }
.update-time { font-size: 0.8rem; color: #878580; margin-top: 0.25rem; }
.metrics-bar { background: #1C1B1A; color: #FFFCF0; padding: 1rem 2rem; display: flex; gap: 2.5rem; flex-wrap: wrap; }
.metric { display: flex; flex-direction: column; }
.metric-value { font-size: 1.4rem; font-weight: bold; color: #3AA99F; }
.metric-label { font-size: 0.8rem; color: #878580; }
.container { max-width: 1200px; margin: 0 auto; padding: 2rem; }
.dashboard-grid { display: grid; grid-template-columns: 1fr 1fr; gap: 1.5rem; margin-bottom: 1.5rem; }
.chart-container { background: white; border-radius: 8px; padding: 1.25rem; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
.chart-title { font-size: 1rem; font-weight: 600; margin-bottom: 0.75rem; color: #282726; }
.chart-canvas { max-height: 280px; }
.sessions-section { background: white; border-radius: 8px; padding: 1.25rem; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
.filter-tabs { display: flex; gap: 0.5rem; margin-bottom: 1rem; }
.filter-tab { padding: 0.4rem 0.9rem; border: 1px solid #DAD8CE; background: #FFFCF0; border-radius: 4px; cursor: pointer; font-size: 0.8rem; }
.filter-tab.active { background: #3AA99F; color: white; border-color: #3AA99F; }
.sessions-table { width: 100%; border-collapse: collapse; }
.sessions-table th, .sessions-table td { text-align: left; padding: 0.6rem 0.75rem; border-bottom: 1px solid #ECEBE7; font-size: 0.85rem; }
.sessions-table th { background: #F6F5F4; font-weight: 600; color: #575653; }
.session-id { font-family: ui-monospace, monospace; color: #4385BE; }
.status-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-right: 0.45rem; }
.status-active { background: #879A39; }
.status-recent { background: #DA702C; }
.status-inactive { background: #B7B5AC; }
@media (max-width: 768px) { .dashboard-grid { grid-template-columns: 1fr; } }
</style>
</head>
<body>
<div class="header">
  <h1>Conversation Usage Dashboard</h1>
  <div class="update-time">Generated {{.GeneratedAt}}</div>
</div>

<div class="metrics-bar">
  <div class="metric"><div class="metric-value">{{.TotalSessions}}</div><div class="metric-label">sessions</div></div>
  <div class="metric"><div class="metric-value">{{.TotalEvents}}</div><div class="metric-label">events</div></div>
  <div class="metric"><div class="metric-value">{{.TotalTokens}}</div><div class="metric-label">tokens</div></div>
  <div class="metric"><div class="metric-value">{{.AvgTokens}}</div><div class="metric-label">avg tokens/session</div></div>
  <div class="metric"><div class="metric-value">{{.TechCount}}</div><div class="metric-label">topics</div></div>
  {{if .CostAvailable}}<div class="metric"><div class="metric-value">{{.CostTotal}}</div><div class="metric-label">est. spend</div></div>{{end}}
</div>

<div class="container">
  <div class="dashboard-grid">
    <div class="chart-container">
      <div class="chart-title">Token Usage Over Time</div>
      <canvas id="tokenChart" class="chart-canvas"></canvas>
    </div>
    <div class="chart-container">
      <div class="chart-title">Hourly Activity</div>
      <canvas id="hourlyChart" class="chart-canvas"></canvas>
    </div>
    <div class="chart-container">
      <div class="chart-title">Model Usage</div>
      <canvas id="modelChart" class="chart-canvas"></canvas>
    </div>
    <div class="chart-container">
      <div class="chart-title">Topic Distribution</div>
      <canvas id="techChart" class="chart-canvas"></canvas>
    </div>
  </div>

  <div class="sessions-section">
    <div class="chart-title">Sessions</div>
    <div class="filter-tabs">
      <div class="filter-tab active" data-filter="all">all</div>
      <div class="filter-tab" data-filter="active">active</div>
      <div class="filter-tab" data-filter="recent">recent</div>
      <div class="filter-tab" data-filter="inactive">inactive</div>
    </div>
    <div style="overflow-x: auto;">
      <table class="sessions-table">
        <thead>
          <tr><th>Session</th><th>Topic</th><th>Model</th><th>Events</th><th>Tokens</th><th>Last Activity</th><th>Status</th></tr>
        </thead>
        <tbody>
          {{range .Sessions}}
          <tr data-status="{{.Status}}">
            <td class="session-id">{{.ID}}</td>
            <td>{{.Tech}}</td>
            <td>{{.Model}}</td>
            <td>{{.Events}}</td>
            <td>{{.Tokens}}</td>
            <td>{{.LastActivity}}</td>
            <td><span class="status-dot status-{{.Status}}"></span>{{.Status}}</td>
          </tr>
          {{end}}
        </tbody>
      </table>
    </div>
  </div>
</div>

<script>
const palette = ['#4385BE', '#879A39', '#DA702C', '#8B7EC8', '#3AA99F', '#D14D41', '#D0A215', '#CE5D97'];

new Chart(document.getElementById('tokenChart'), {
  type: 'line',
  data: {
    labels: {{.DailyLabels}},
    datasets: [{
      label: 'Tokens',
      data: {{.DailyTokens}},
      borderColor: '#4385BE',
      backgroundColor: 'rgba(67, 133, 190, 0.12)',
      fill: true,
      tension: 0.1
    }]
  },
  options: { responsive: true, maintainAspectRatio: false, scales: { y: { beginAtZero: true } } }
});

new Chart(document.getElementById('hourlyChart'), {
  type: 'bar',
  data: {
    labels: {{.HourlyLabels}},
    datasets: [{ label: 'Events', data: {{.HourlyCounts}}, backgroundColor: '#3AA99F' }]
  },
  options: { responsive: true, maintainAspectRatio: false, scales: { y: { beginAtZero: true } } }
});

new Chart(document.getElementById('modelChart'), {
  type: 'doughnut',
  data: {
    labels: {{.ModelLabels}},
    datasets: [{ data: {{.ModelEvents}}, backgroundColor: palette }]
  },
  options: { responsive: true, maintainAspectRatio: false }
});

new Chart(document.getElementById('techChart'), {
  type: 'bar',
  data: {
    labels: {{.TechLabels}},
    datasets: [{ label: 'Sessions', data: {{.TechValues}}, backgroundColor: palette }]
  },
  options: { responsive: true, maintainAspectRatio: false, indexAxis: 'y' }
});

const tabs = document.querySelectorAll('.filter-tab');
tabs.forEach(function (tab) {
  tab.addEventListener('click', function () {
    tabs.forEach(function (t) { t.classList.remove('active'); });
    tab.classList.add('active');
    const filter = tab.getAttribute('data-filter');
    document.querySelectorAll('.sessions-table tbody tr').forEach(function (row) {
      const show = filter === 'all' || row.getAttribute('data-status') === filter;
      row.style.display = show ? '' : 'none';
    });
  });
});
</script>
</body>
</html>
`
