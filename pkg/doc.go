// Package pkg holds the libraries behind the cosem command.
//
// # Overview
//
// cosem reads the OpenOrganelle (COSEM) catalog of FIB-SEM datasets, loads
// views and regions of their N5 volumes into labeled arrays, and rasterizes
// line segments into voxel grids. The libraries fall into four areas:
//
//  1. Domain: [bresenham] (segment rasterization), [cosem] (datasets, views,
//     samples), [ndarray] and [geom] (labeled arrays and physical space)
//  2. Data access: [catalog] (index, manifests, thumbnails), [source] and
//     [n5] (volume readers), [storage] (object stores)
//  3. Infrastructure: [cache], [httputil], [integrations], [observability],
//     [errors], [buildinfo]
//  4. Surfaces: [preview] (PNG rendering) and [server] (HTTP API)
//
// # Data Flow
//
//	catalog index.json / manifest.json
//	         ↓
//	    [cosem] Dataset (view and source selection)
//	         ↓
//	    [source] registry → [n5] array → [storage] store
//	         ↓
//	    [ndarray] Array stacked along "source"
//	         ↓
//	    [preview] PNG projections
//
// # Quick Start
//
//	cat := catalog.NewClient(cache.NewMemoryCache(64<<20), catalog.DefaultTTL)
//	ds, err := cosem.New(ctx, cat, "jrc_hela-2")
//	if err != nil {
//	    return err
//	}
//	arr, err := ds.LoadView(ctx, cosem.LoadOptions{Name: "mito", Extent: []float64{2000}})
package pkg
