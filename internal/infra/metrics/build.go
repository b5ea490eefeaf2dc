package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "nova_build_info",
		Help: "A constant metric with labels for service, version and commit hash.",
	},
	[]string{"service", "version", "commit"},
)

func SetBuildInfo(service, version, commit string) {
	buildInfo.WithLabelValues(service, version, commit).Set(1)
}
