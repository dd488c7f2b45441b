// Package root_view is the index page: the container of every view component,
// the wiring of their channels, and the websocket bootstrap script.
package root_view

import (
	"context"
	"html/template"
	"time"

	"kybernaut/reinforcement"
	"kybernaut/server/cell_views"
	"kybernaut/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// Batches are flushed no faster than the client publication rate, so that no
// batch is dropped by the client.
const batchRate = time.Millisecond * 150

type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the views of a @dim x @dim world fed by @snapshots.
func NewRootView(
	ctx context.Context,
	dim int,
	snapshots <-chan *reinforcement.Snapshot,
) (*RootView, error) {
	views, err := fastview.NewViewBuilder[*reinforcement.Snapshot, [][]cell_views.Cell]().
		WithContext(ctx).
		WithModel(snapshots, cell_views.Convert).
		WithView(func(
			done <-chan struct{},
			cellUpdates <-chan [][]cell_views.Cell) fastview.ViewComponent {
			return cell_views.NewVisitsGrid(done, cellUpdates)
		}).
		WithView(func(
			done <-chan struct{},
			cellUpdates <-chan [][]cell_views.Cell) fastview.ViewComponent {
			return cell_views.NewValueFunction(done, cellUpdates, dim)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	return &RootView{
		views:   views,
		updates: fanIn(ctx.Done(), views),
	}, nil
}

// Updates returns the merged ele-update channel of all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// layoutFuncs is the integer arithmetic the svg views use to place their cells.
var layoutFuncs = template.FuncMap{
	"add":  func(a, b int) int { return a + b },
	"mult": func(a, b int) int { return a * b },
	"div":  func(a, b int) int { return a / b },
}

// Parse defines the index page with its websocket bootstrap, and returns its name.
// It also installs the func-map the child views depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(layoutFuncs)

	var bodySpec string
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			return "", parseErr
		}
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<title>kybernaut</title>
			<link rel="icon" href="data:,">
			<script>
				function apply(update) {
					const ele = document.getElementById(update.EleId)
					if (!ele) {
						return
					}
					update.Ops.forEach(op => op.Key === "textContent"
						? (ele.textContent = op.Value)
						: ele.setAttribute(op.Key, op.Value))
				}

				const sock = new WebSocket("ws://" + window.location.host + "/ws");
				sock.onopen = () => console.log("kybernaut: live view attached");
				sock.onerror = (event) => console.log("kybernaut: socket failure", event);
				sock.onmessage = (event) => JSON.parse(event.data).forEach(apply);
			</script>
		</head>
		<body style="display: flex; flex-wrap: wrap; font-family: monospace;">
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}

// fanIn joins every view's updates into the one batched stream the client publishes.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		batchRate)
}

// batchify collects updates and sends them once per @rate tick, keeping only
// the latest update per ele-id. Nothing is sent for an empty batch.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]fastview.EleUpdate{}
		ticker := channerics.NewTicker(done, rate)
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					if len(data) > 0 {
						select {
						case output <- slicedVals(data):
						case <-done:
						}
					}
					return
				}
				for _, update := range updates {
					data[update.EleId] = update
				}
			case <-ticker:
				if len(data) == 0 {
					break
				}
				select {
				case output <- slicedVals(data):
					data = map[string]fastview.EleUpdate{}
				case <-done:
					return
				}
			}
		}
	}()

	return output
}

// slicedVals flattens a batch keyed by ele-id.
func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
