package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(Up0001, Down0001)
}

// run_id_v7() returns a UUIDv7: 48 bits of unix milliseconds, the version nibble, 12 bits of
// sub-millisecond time and 62 random bits. Runs started in the same transaction still sort in
// start order, which LatestByJobID relies on.
func Up0001(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
CREATE FUNCTION run_id_v7() RETURNS uuid AS $$
DECLARE
	unix_us bigint := floor(extract(epoch FROM clock_timestamp()) * 1000000)::bigint;
	sub_ms int := ((unix_us % 1000) * 4096 / 1000)::int;
	id bytea;
BEGIN
	id := substring(int8send(unix_us / 1000) FROM 3)
		|| int2send(((7 << 12) | sub_ms)::int2)
		|| substring(uuid_send(gen_random_uuid()) FROM 9 FOR 8);
	-- RFC 9562 variant bits
	id := set_byte(id, 8, (get_byte(id, 8) & 63) | 128);
	RETURN encode(id, 'hex')::uuid;
END
$$ LANGUAGE plpgsql VOLATILE;
`)

	return err
}

func Down0001(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP FUNCTION run_id_v7();`)
	return err
}
