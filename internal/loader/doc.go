// Package loader implements the relational bulk loader.
//
// A Loader reads database credentials from a secret store once at
// construction, opens a single connection on Connect and appends frames
// in independently committed chunks:
//
//	ldr, err := loader.New(ctx, vaultClient, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer ldr.Close()
//
//	if err := ldr.Connect(ctx); err != nil {
//	    return err
//	}
//	res, err := ldr.AppendBulk(ctx, "dbo.sales", frame)
//
// A failed chunk is rolled back; the chunks before it stay committed and
// the chunks after it are not attempted. The returned LoadResult tells
// the caller how far the load got.
package loader
