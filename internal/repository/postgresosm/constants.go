package postgresosm

const SRID4326 = 4326

// Source tables of the reference snapshot
const (
	nodesTable     = "nodes"
	waysPolyTable  = "ways_poly"
	relationsTable = "relations"
)

// Temporary views limited to the AOI, one set per pinned connection
const (
	viewNodes     = "fm_ref_nodes"
	viewWaysPoly  = "fm_ref_ways_poly"
	viewRelations = "fm_ref_relations"
)

// LimitNearby ограничивает число кандидатов на дубликат
const LimitNearby = 50
