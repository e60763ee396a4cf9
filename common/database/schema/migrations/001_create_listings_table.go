package migrations

import "duunihaku/common/database/schema"

var CreateListingsTable = schema.Migration{
	Version:     1,
	Description: "Create listings table",
	Up: `
		CREATE TABLE IF NOT EXISTS listings (
			id UUID,
			title String,
			company String,
			city String,
			source LowCardinality(String),
			link String,
			query_haku String,
			query_alue String,
			query_page Int32,
			fetched_at DateTime
		) ENGINE = ReplacingMergeTree(fetched_at)
		PARTITION BY toYYYYMM(fetched_at)
		ORDER BY (source, id)
		SETTINGS index_granularity = 8192
	`,
	Down: `DROP TABLE IF EXISTS listings`,
}

// All lists every migration in version order.
var All = []schema.Migration{
	CreateListingsTable,
}
