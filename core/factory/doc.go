// Package factory provides the generic registry used to build named modules
// from configuration: solver engines, telemetry stores and metrics sinks are
// all selected by a type string plus a map of raw settings. Factories decode
// the settings into typed structs with Decode or DecodeStrict.
//
// Example usage:
//
//	reg := factory.NewRegistry[telemetry.Store]()
//	_ = reg.Register("jsonl", func(conf map[string]any) (telemetry.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.DecodeStrict(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return telemetry.NewJSONLStore(c.Path)
//	})
//	st, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "run.jsonl"}})
package factory
