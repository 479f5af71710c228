package dashboard

// indexHTML is the single dashboard page. Charts render client-side
// with Chart.js from the results of the JSON API.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Ecolyze</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.7/dist/chart.umd.min.js"></script>
<style>
  body { font-family: system-ui, sans-serif; max-width: 880px; margin: 2rem auto; padding: 0 1rem; color: #1c2b22; }
  h1 { color: #1d7a46; }
  .controls { display: flex; gap: 0.75rem; align-items: center; margin: 1.5rem 0; }
  button { background: #1d7a46; color: white; border: 0; border-radius: 6px; padding: 0.55rem 1.1rem; cursor: pointer; }
  button:disabled { background: #9bb8a7; }
  select { padding: 0.45rem; }
  table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
  th, td { border: 1px solid #cfe0d6; padding: 0.45rem 0.65rem; text-align: left; }
  th { background: #eaf4ee; }
  #status { color: #7a1d1d; }
  canvas { max-height: 320px; }
</style>
</head>
<body>
<h1>Ecolyze &#127807;</h1>
<p>Analyze CO&#8322; emissions with BigQuery ML and MongoDB.</p>

<div class="controls">
  <label for="year">Year:</label>
  <select id="year">
    {{range .Years}}<option value="{{.}}">{{.}}</option>{{end}}
  </select>
  <button id="analyze">Run Analysis</button>
  <button id="forecast">Run ML Forecast</button>
  <span id="status"></span>
</div>

<section id="summary-section" hidden>
  <h2 id="summary-title"></h2>
  <table id="summary-table">
    <thead><tr><th>Country</th><th>Total CO&#8322;</th></tr></thead>
    <tbody></tbody>
  </table>
  <canvas id="summary-chart"></canvas>
</section>

<section id="forecast-section" hidden>
  <h2>Predicted CO&#8322; for {{.ForecastCountry}} (from {{.ForecastMinYear}})</h2>
  <canvas id="forecast-chart"></canvas>
</section>

<script>
var summaryChart = null, forecastChart = null;

function setBusy(busy, msg) {
  document.getElementById('analyze').disabled = busy;
  document.getElementById('forecast').disabled = busy;
  document.getElementById('status').textContent = msg || '';
}

async function post(path, body) {
  var resp = await fetch(path, {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(body || {})
  });
  var data = await resp.json();
  if (!resp.ok) { throw new Error(data.error || ('HTTP ' + resp.status)); }
  return data;
}

function renderSummary(year, rows) {
  var section = document.getElementById('summary-section');
  section.hidden = false;
  document.getElementById('summary-title').textContent =
    'Top 5 CO₂ Emitting Countries in ' + year;

  var tbody = document.querySelector('#summary-table tbody');
  tbody.innerHTML = '';
  rows.forEach(function (row) {
    var tr = document.createElement('tr');
    tr.innerHTML = '<td></td><td></td>';
    tr.children[0].textContent = row.country;
    tr.children[1].textContent = row.total_co2.toFixed(2);
    tbody.appendChild(tr);
  });

  if (summaryChart) { summaryChart.destroy(); }
  summaryChart = new Chart(document.getElementById('summary-chart'), {
    type: 'bar',
    data: {
      labels: rows.map(function (r) { return r.country; }),
      datasets: [{ label: 'Total CO₂', data: rows.map(function (r) { return r.total_co2; }), backgroundColor: '#1d7a46' }]
    }
  });
}

function renderForecast(rows) {
  var section = document.getElementById('forecast-section');
  section.hidden = false;

  if (forecastChart) { forecastChart.destroy(); }
  forecastChart = new Chart(document.getElementById('forecast-chart'), {
    type: 'line',
    data: {
      labels: rows.map(function (r) { return r.year; }),
      datasets: [{ label: 'Predicted CO₂', data: rows.map(function (r) { return r.predicted_co2; }), borderColor: '#1d7a46' }]
    }
  });
}

document.getElementById('analyze').addEventListener('click', async function () {
  var year = parseInt(document.getElementById('year').value, 10);
  setBusy(true, 'Loading and analyzing data…');
  try {
    var result = await post('/api/analyze', { year: year });
    renderSummary(result.year, result.summary);
    setBusy(false, '');
  } catch (err) {
    setBusy(false, err.message);
  }
});

document.getElementById('forecast').addEventListener('click', async function () {
  setBusy(true, 'Training forecast model…');
  try {
    var result = await post('/api/forecast');
    renderForecast(result.forecast);
    setBusy(false, '');
  } catch (err) {
    setBusy(false, err.message);
  }
});
</script>
</body>
</html>
`
