package platform

import (
	"regexp"

	"github.com/9531lyj/AutoCheckBJMF/internal/model"
)

// Task markers are matched at the text level rather than through a full
// HTML parse: the course page renders them inside inline onclick handlers,
// which a structural parser would not expose any more cleanly.
var (
	gpsTaskPattern = regexp.MustCompile(`punch_gps\((\d+)\)`)
	qrTaskPattern  = regexp.MustCompile(`punchcard_(\d+)`)
)

// DiscoverTasks scans the course listing markup for pending check-in
// tasks. GPS tasks come first, QR-code tasks are appended, and the
// submission loop consumes them in exactly this order.
func DiscoverTasks(html string) []model.Task {
	var tasks []model.Task
	for _, m := range gpsTaskPattern.FindAllStringSubmatch(html, -1) {
		tasks = append(tasks, model.Task{ID: m[1], Kind: model.TaskGPS})
	}
	for _, m := range qrTaskPattern.FindAllStringSubmatch(html, -1) {
		tasks = append(tasks, model.Task{ID: m[1], Kind: model.TaskQRCode})
	}
	return tasks
}
