package mysql

const upsertRunSQL = `
INSERT INTO sync_runs
  (id, started_at, finished_at, fetched, active, postable, fetch_error, failed_count, tables_json, failed_json)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  finished_at  = VALUES(finished_at),
  fetched      = VALUES(fetched),
  active       = VALUES(active),
  postable     = VALUES(postable),
  fetch_error  = VALUES(fetch_error),
  failed_count = VALUES(failed_count),
  tables_json  = VALUES(tables_json),
  failed_json  = VALUES(failed_json)
`

const deleteOutcomesSQL = `DELETE FROM sync_outcomes WHERE run_id = ?`

const insertOutcomesPrefix = "INSERT INTO sync_outcomes\n  (run_id, seq, table_id, label, listing, address, row_id, outcome, detail)\nVALUES "

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getRunSQL = `
SELECT id, started_at, finished_at, fetched, active, postable, fetch_error, tables_json, failed_json
FROM sync_runs
WHERE id = ?
`

const getOutcomesSQL = `
SELECT table_id, label, listing, address, row_id, outcome, detail
FROM sync_outcomes
WHERE run_id = ?
ORDER BY seq
`

const listRunsSQL = `
SELECT id, started_at, finished_at, fetched, active, failed_count
FROM sync_runs
ORDER BY started_at DESC, id DESC
LIMIT ?
`
