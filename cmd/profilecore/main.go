// Command profilecore demonstrates the profile extraction core end to end
// against a small synthetic octree, driving the controller from a
// time.Ticker loop the way a real host's render loop would.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tteke/three-loader/controller"
	"github.com/tteke/three-loader/mat"
	"github.com/tteke/three-loader/octree"
	"github.com/tteke/three-loader/profile"
)

// logSink prints every aggregated batch as it arrives, standing in for a
// renderer/material upload target.
type logSink struct {
	logger *zap.SugaredLogger
}

func (s *logSink) Consume(src *controller.PointCloudSource, entry *controller.ProjectedEntry) {
	box := entry.ProjectedBox()
	s.logger.Infow("aggregated batch",
		"batches", len(entry.Batches()),
		"box_min", box.Min,
		"box_max", box.Max,
	)
}

// gridSource is a synthetic OctreeSource: a single root node with a flat
// grid of points, enough to exercise traversal, filtering, and emission
// without a real loader.
type gridSource struct {
	root *octree.StaticNode
}

func newGridSource(n int, spacing float32) *gridSource {
	positions := make([]float32, 0, n*n*3)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			positions = append(positions, float32(i)*spacing, float32(j)*spacing, 0)
		}
	}
	half := float32(n) * spacing
	root := &octree.StaticNode{
		NodeLevel:    0,
		Box:          mat.Box3{Min: mat.NewVec3(0, 0, 0), Max: mat.NewVec3(half, half, 0)},
		Sphere:       mat.Sphere{Center: mat.NewVec3(half/2, half/2, 0), Radius: half},
		StepSize:     1,
		PositionData: positions,
		IsLoaded:     true,
	}
	return &gridSource{root: root}
}

func (s *gridSource) Root() octree.Node { return s.root }
func (s *gridSource) WorldMatrix() mat.Mat4 { return mat.Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1} }

func main() {
	tickInterval := flag.Duration("tick", 16*time.Millisecond, "host tick interval")
	gridN := flag.Int("grid", 64, "grid side length in points")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("profilecore: building logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	lru, err := octree.NewSharedNodeLRU(256)
	if err != nil {
		sugar.Fatalw("building node cache", "error", err)
	}

	ctrl := controller.New(controller.Options{
		Config:  controller.DefaultConfig(),
		Logger:  sugar,
		Metrics: controller.NewMetrics(prometheus.DefaultRegisterer),
		Sink:    &logSink{logger: sugar},
		LRU:     lru,
	})

	prof := profile.New(1.0, 2.0)
	prof.AddMarker(mat.NewVec3(0, 0, 0))
	prof.AddMarker(mat.NewVec3(10, 0, 0))
	prof.AddMarker(mat.NewVec3(10, 10, 0))
	ctrl.SetProfile(prof)

	src := controller.NewPointCloudSource(newGridSource(*gridN, 0.5))
	ctrl.AddPointCloud(src)
	ctrl.Recompute()

	tick := time.NewTicker(*tickInterval)
	defer tick.Stop()

	sugar.Infow("profilecore running", "tick", *tickInterval, "grid", *gridN)
	for {
		<-tick.C
		ctrl.Update()
	}
}
