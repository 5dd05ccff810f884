package resource

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/schema"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/validation"

	"github.com/raywall/terraform-provider-lambdaproxy/internal/packager"
)

// DataSourceArchive empacota o handler em um zip durante o plan.
func DataSourceArchive() *schema.Resource {
	return &schema.Resource{
		Description: "Gera o pacote zip de um único arquivo para uso em lambdaproxy_function_api.",
		ReadContext: dataSourceArchiveRead,
		Schema: map[string]*schema.Schema{
			"source_file": {
				Type:         schema.TypeString,
				Optional:     true,
				Default:      packager.DefaultSource,
				ValidateFunc: validation.StringIsNotWhiteSpace,
			},
			"output_path": {
				Type:     schema.TypeString,
				Optional: true,
				Computed: true,
			},
			"output_base64sha256": {Type: schema.TypeString, Computed: true},
			"output_size":         {Type: schema.TypeInt, Computed: true},
		},
	}
}

func dataSourceArchiveRead(ctx context.Context, d *schema.ResourceData, _ interface{}) diag.Diagnostics {
	source := d.Get("source_file").(string)
	output := d.Get("output_path").(string)

	res, err := packager.Zip(source, output)
	if err != nil {
		return diag.FromErr(fmt.Errorf("packaging %s: %w", source, err))
	}

	tflog.Debug(ctx, "archive written", map[string]interface{}{"path": res.Path, "size": res.Size})

	d.SetId(res.Base64SHA256)
	if err := d.Set("output_path", res.Path); err != nil {
		return diag.FromErr(err)
	}
	if err := d.Set("output_base64sha256", res.Base64SHA256); err != nil {
		return diag.FromErr(err)
	}
	if err := d.Set("output_size", int(res.Size)); err != nil {
		return diag.FromErr(err)
	}
	return nil
}
