package chart

import (
	"fmt"
	"strconv"
)

// overlayScript binds data point clicks to the detail overlay endpoint.
//
// The endpoint answers with the overlay fragment, appended to the body once any open
// overlay is closed.
func overlayScript(endpoint string) string {
	return fmt.Sprintf(`(function () {
  var endpoint = %s;
  function closeOverlays() {
    document.querySelectorAll('div.tinyOverlay').forEach(function (el) { el.remove(); });
  }
  document.addEventListener('click', function (e) {
    if (e.target.closest && e.target.closest('div.tinyOverlay a.close')) {
      e.preventDefault();
      closeOverlays();
    }
  });
  if (typeof echarts === 'undefined') { return; }
  document.querySelectorAll('div.chartdiv').forEach(function (div) {
    var target = document.getElementById(div.getAttribute('data-echarts-id'));
    var chart = target ? echarts.getInstanceByDom(target) : null;
    if (!chart) { return; }
    var keys = JSON.parse(div.getAttribute('data-keys') || '[]');
    chart.on('click', function (params) {
      var key = (keys[params.seriesIndex] || [])[params.dataIndex];
      if (!key) { return; }
      var q = new URLSearchParams({
        chart: div.id, series: params.seriesIndex, point: key,
        x: params.event.event.pageX, y: params.event.event.pageY
      });
      fetch(endpoint + '?' + q.toString())
        .then(function (r) { return r.ok ? r.text() : ''; })
        .then(function (html) {
          if (!html) { return; }
          closeOverlays();
          document.body.insertAdjacentHTML('beforeend', html);
        });
    });
  });
})();
`, strconv.Quote(endpoint))
}
