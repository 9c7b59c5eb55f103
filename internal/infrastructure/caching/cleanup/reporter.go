package cleanup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
)

const (
	cyan     = "\033[38;2;86;182;194m"  // One Dark Cyan: #56B6C2
	dimCyan  = "\033[38;2;47;91;102m"   // Dim Cyan: #2F5B66
	grey     = "\033[38;2;110;118;129m" // Brighter Grey: #6E7681
	dimGrey  = "\033[38;2;75;82;99m"    // Darker Grey: #4B5263
	success  = "\033[38;2;62;130;144m"  // Dim Cyan: #3E8290
	warning  = "\033[38;2;229;192;123m" // One Dark Yellow: #E5C07B
	errorRed = "\033[38;2;224;108;117m" // One Dark Red: #E06C75
	white    = "\033[38;2;171;178;191m" // One Dark Foreground: #ABB2BF
	reset    = "\033[0m"
	bold     = "\033[1m"
)

type Reporter struct {
	store *caching.Store
}

func NewReporter(store *caching.Store) *Reporter {
	return &Reporter{store: store}
}

func (r *Reporter) LogStage(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s%s✦ %s%s%s\n", success, bold, grey, formattedMsg, reset)
}

func (r *Reporter) LogSuccess(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s%s✦ %s%s%s\n", success, bold, white, formattedMsg, reset)
}

func (r *Reporter) LogError(message string, err error) {
	fmt.Printf("%s%s✖ ERROR: %s%s: %v%s\n", bold, errorRed, grey, message, err, reset)
}

func (r *Reporter) LogWarning(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s%s⚠ WARNING: %s%s%s\n", bold, warning, grey, formattedMsg, reset)
}

func (r *Reporter) LogInfo(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s▶ %s%s%s\n", dimGrey, grey, formattedMsg, reset)
}

// GenerateStoreReport summarizes key counts per namespace.
func (r *Reporter) GenerateStoreReport(ctx context.Context) string {
	var report strings.Builder
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 MST")

	report.WriteString(fmt.Sprintf("%s%s▓ %s | Store contents%s\n", bold, dimCyan, timestamp, reset))

	namespaces := []struct {
		name   string
		prefix string
	}{
		{"recommendations", caching.PrefixRecommendations},
		{"wardrobes", caching.PrefixWardrobe},
		{"weather", caching.PrefixWeather},
		{"profiles", caching.PrefixStyleProfile},
		{"images", caching.PrefixImage},
		{"interactions", caching.PrefixInteraction},
	}

	var countsLine strings.Builder
	countsLine.WriteString(fmt.Sprintf("%s✦ cached keys:%s", cyan, reset))
	for _, ns := range namespaces {
		countsLine.WriteString(" ")
		keys, err := r.store.ListKeys(ctx, ns.prefix)
		if err == nil && len(keys) > 0 {
			countsLine.WriteString(fmt.Sprintf("%s%s:%s%d", dimCyan, ns.name, cyan, len(keys)))
		} else {
			countsLine.WriteString(fmt.Sprintf("%s%s:%s--", dimGrey, ns.name, dimGrey))
		}
	}
	report.WriteString(countsLine.String() + "\n")

	return report.String()
}
